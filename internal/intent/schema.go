package intent

import "encoding/json"

// SchemaName is the name the translator registers the response format under.
const SchemaName = "logistics_intent"

// Schema is the strict JSON schema the translator must answer with.
var Schema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "required": ["intentType", "filter", "action", "maxTargets", "targetPalletId", "targetZone", "targetStatus", "targetDestination"],
  "properties": {
    "intentType": {"type": "string", "enum": ["filter", "action"]},
    "filter": {
      "type": "object",
      "additionalProperties": false,
      "required": ["palletId", "destination", "status", "urgencyLevel", "weightMinKg", "weightMaxKg", "highlightColor"],
      "properties": {
        "palletId": {"type": ["string", "null"]},
        "destination": {"type": ["string", "null"]},
        "status": {"type": "string", "enum": ["all", "stored", "transit", "delayed"]},
        "urgencyLevel": {"type": "string", "enum": ["all", "low", "medium", "high"]},
        "weightMinKg": {"type": ["number", "null"]},
        "weightMaxKg": {"type": ["number", "null"]},
        "highlightColor": {"type": ["string", "null"]}
      }
    },
    "action": {"type": ["string", "null"], "enum": ["receive", "putaway", "scan", "relocate", "pick", "load", "delay", "set_status", "set_destination", null]},
    "maxTargets": {"type": "integer", "minimum": 1, "maximum": 50},
    "targetPalletId": {"type": ["string", "null"]},
    "targetZone": {"type": ["string", "null"], "enum": ["A", "B", "C", null]},
    "targetStatus": {"type": ["string", "null"], "enum": ["stored", "transit", "delayed", null]},
    "targetDestination": {"type": ["string", "null"]}
  }
}`)

// SystemPrompt instructs the translator how to fill the schema.
const SystemPrompt = `You are the assistant of the "SpaceFlow" warehouse management system.
Translate natural language (English or German) into a structured intent object.

intentType rules:
- intentType="filter" when the user only wants to show, filter or highlight pallets.
- intentType="action" when the user wants an operational change (scan, relocate, pick, load, putaway, receive, delay, set_status, set_destination).

For intentType="action":
- action MUST be set.
- filter describes the target group of pallets.
- maxTargets: a sensible count between 1 and 20, default 10 when unclear.
- targetPalletId for one concrete pallet (e.g. "PAL-00001").
- targetZone only for relocations into a specific zone (A/B/C).
- targetStatus only for status changes (stored/transit/delayed).
- targetDestination only for destination changes.

For intentType="filter":
- action = null, maxTargets = 10.
- targetPalletId/targetZone/targetStatus/targetDestination = null.

Filter rules:
- Unmentioned fields: palletId = null, status/urgencyLevel = "all", destination = null, weightMinKg/weightMaxKg = null.
- A concrete pallet id (e.g. "PAL-00001") goes into filter.palletId.
- Weights are always kg: "under X kg" => weightMaxKg = X, "over X kg" => weightMinKg = X, "between X and Y kg" => both.
- Normalise colours to hex codes (red -> #ef4444, green -> #22c55e, blue -> #3b82f6).

Examples:
- "Show me PAL-00001." => filter with filter.palletId = "PAL-00001"
- "Zeig mir alle überfälligen Lieferungen für Zürich und markiere sie rot." => filter
- "Relocate all delayed pallets in Bern." => action relocate
- "Move PAL-00001 to zone C." => action relocate + targetPalletId + targetZone
- "Change PAL-00001 status to stored." => action set_status + targetPalletId + targetStatus
- "Change PAL-00002 destination to Bern." => action set_destination + targetPalletId + targetDestination`

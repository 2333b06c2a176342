package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/intent"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet/dto"
	"github.com/fekuna/spaceflow-wms-service/internal/translator"
	"github.com/spf13/cobra"
)

type offlineTranslator struct{}

func (offlineTranslator) Translate(ctx context.Context, prompt string) (*model.Intent, error) {
	return nil, intent.Errorf(intent.ReasonInternal, "no translator configured")
}

func applyCmd() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "apply <intent-json|@file>",
		Short: "Validate and execute a structured intent",
		Example: `  wmsctl apply '{"intentType":"action","filter":{"status":"delayed","urgencyLevel":"all"},"action":"putaway","maxTargets":5}'
  wmsctl apply @intent.json --write`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			raw := []byte(args[0])
			if path, ok := strings.CutPrefix(args[0], "@"); ok {
				b, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				raw = b
			}
			in, err := intent.Decode(raw)
			if err != nil {
				return err
			}

			s, err := openSession(ctx, nil)
			if err != nil {
				return err
			}
			if err := printResult(cmd.OutOrStdout(), s.commands.Execute(ctx, in, prompt)); err != nil {
				return err
			}
			return s.finish(ctx)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "original prompt text, used for keyword corrections")
	return cmd
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Translate a free-text prompt and execute it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cfg.Translator.APIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is not set")
			}
			tr := translator.NewOpenAITranslator(translator.Config{
				BaseURL:     cfg.Translator.BaseURL,
				APIKey:      cfg.Translator.APIKey,
				Model:       cfg.Translator.Model,
				Timeout:     cfg.Translator.Timeout,
				Temperature: float32(cfg.Translator.Temperature),
			}, newLogger())
			s, err := openSession(ctx, tr)
			if err != nil {
				return err
			}

			res := s.commands.Submit(ctx, strings.Join(args, " "))
			if err := printResult(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if res.Intent != nil {
				if err := printJSON(cmd.OutOrStdout(), res.Intent); err != nil {
					return err
				}
			}
			return s.finish(ctx)
		},
	}
}

func simulateCmd() *cobra.Command {
	var ticks int
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run simulation ticks and print the resulting events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticks < 1 {
				return fmt.Errorf("--ticks must be at least 1")
			}
			ctx := cmd.Context()
			s, err := openSession(ctx, nil)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TICK\tPALLET\tOUTCOME\tEVENT\tSTATUS\tLOCATION")
			for i := 1; i <= ticks; i++ {
				res, err := s.store.SimulateTick(ctx)
				if err != nil {
					return err
				}
				evType, st, loc := "-", "-", "-"
				if res.Event != nil {
					evType = string(res.Event.Type)
				}
				if res.After != nil {
					st, loc = string(res.After.Status), res.After.LogicalAddress.ID
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", i, res.PalletID, res.Outcome, evType, st, loc)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return s.finish(ctx)
		},
	}
	cmd.Flags().IntVarP(&ticks, "ticks", "n", 10, "number of ticks")
	return cmd
}

func kpisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kpis",
		Short: "Print logistics KPIs for the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s.store.KPIs())
		},
	}
}

func eventsCmd() *cobra.Command {
	var (
		palletID string
		evType   string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List pallet events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), nil)
			if err != nil {
				return err
			}
			events := s.store.Events(&dto.EventFilters{
				PalletID: palletID,
				Type:     model.EventType(evType),
				Limit:    limit,
			})

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "AT\tPALLET\tTYPE\tACTOR\tSOURCE\tNOTE")
			for _, ev := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					ev.At.Format(time.RFC3339), ev.PalletID, ev.Type, ev.Actor, ev.Source, ev.Note)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&palletID, "pallet", "", "only events of this pallet")
	cmd.Flags().StringVar(&evType, "type", "", "only events of this type")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events (0 = all)")
	return cmd
}

func palletsCmd() *cobra.Command {
	var (
		status      string
		urgency     string
		destination string
	)
	cmd := &cobra.Command{
		Use:   "pallets",
		Short: "List pallets matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, nil)
			if err != nil {
				return err
			}

			f := model.AllFilter()
			f.Status = status
			f.UrgencyLevel = urgency
			if destination != "" {
				f.Destination = &destination
			}
			raw, err := json.Marshal(model.Intent{IntentType: model.IntentFilter, Filter: f, MaxTargets: model.DefaultMaxTargets})
			if err != nil {
				return err
			}
			in, err := intent.Decode(raw)
			if err != nil {
				return err
			}
			res := s.commands.Execute(ctx, in, "")
			if !res.Applied {
				return printResult(cmd.OutOrStdout(), res)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tURGENCY\tDESTINATION\tWEIGHT\tLOCATION\tLAST SCAN")
			for _, p := range s.store.FilteredPallets() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t%s\t%s\n",
					p.ID, p.Status, p.Urgency, p.Destination, p.WeightKg, p.LogicalAddress.ID, p.LastScannedAt.Format(time.RFC3339))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", model.FilterAll, "stored, transit, delayed or all")
	cmd.Flags().StringVar(&urgency, "urgency", model.FilterAll, "low, medium, high or all")
	cmd.Flags().StringVar(&destination, "destination", "", "destination substring")
	return cmd
}

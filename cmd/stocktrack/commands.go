package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tracklab/stocktrack/internal/config"
	"github.com/tracklab/stocktrack/internal/history"
	"github.com/tracklab/stocktrack/internal/seed"
	"github.com/tracklab/stocktrack/internal/storage"
)

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history [total|category <name>|entity <sku>]",
	Short: "Show inventory history",
	Long: `Show inventory history.

Examples:
  stocktrack history
  stocktrack history total --days 30
  stocktrack history category Hardware
  stocktrack history entity WID-001 --days 7 --json`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		asJSON, _ := cmd.Flags().GetBool("json")

		view := "total"
		if len(args) > 0 {
			view = args[0]
		}

		var path string
		switch view {
		case "total":
			path = "/api/history/total"
		case "category":
			if len(args) < 2 {
				return fmt.Errorf("category name is required: stocktrack history category <name>")
			}
			path = "/api/history/category/" + url.PathEscape(args[1])
		case "entity":
			if len(args) < 2 {
				return fmt.Errorf("SKU is required: stocktrack history entity <sku>")
			}
			path = "/api/history/entity/" + url.PathEscape(args[1])
		default:
			return fmt.Errorf("unknown view %q: must be total, category, or entity", view)
		}
		if days > 0 {
			path += fmt.Sprintf("?days=%d", days)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(path)
		if err != nil {
			return err
		}

		if asJSON {
			var raw any
			if err := decodeJSON(resp, &raw); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(raw)
		}

		if view == "entity" {
			var summary history.EntitySummary
			if err := decodeJSON(resp, &summary); err != nil {
				return err
			}
			printEntitySummary(summary)
			return nil
		}

		var body struct {
			Points []history.Point `json:"points"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}
		printPoints(body.Points)
		return nil
	},
}

func printPoints(points []history.Point) {
	if len(points) == 0 {
		fmt.Println("No history recorded in this window.")
		return
	}
	for _, p := range points {
		line := fmt.Sprintf("%s  on hand %5d  on order %5d",
			p.At.Local().Format("2006-01-02 15:04"), p.OnHand, p.OnOrder)
		if p.LowStock > 0 {
			line += colorize(colorYellow, fmt.Sprintf("  low stock %d", p.LowStock))
		}
		fmt.Println(line)
	}
}

func printEntitySummary(s history.EntitySummary) {
	fmt.Printf("%s  %s\n", colorize(colorBold, s.SKU), s.Name)
	if s.Category != "" {
		fmt.Printf("  Category:   %s\n", s.Category)
	}
	fmt.Printf("  First seen: %s\n", s.FirstSeen.Local().Format("2006-01-02 15:04"))
	fmt.Printf("  Last seen:  %s\n", s.LastSeen.Local().Format("2006-01-02 15:04"))
	delta := fmt.Sprintf("%+d", s.Delta)
	if s.Delta < 0 {
		delta = colorize(colorRed, delta)
	} else if s.Delta > 0 {
		delta = colorize(colorGreen, delta)
	}
	fmt.Printf("  On hand:    %d → %d (%s over %d points)\n", s.StartValue, s.EndValue, delta, s.Points)
}

func init() {
	historyCmd.Flags().Int("days", 0, "restrict to the last N days (0 = all retained history)")
	historyCmd.Flags().Bool("json", false, "print the raw API response")
}

// --- snapshot ---

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Show the latest inventory snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get("/api/snapshot/latest")
		if err != nil {
			return err
		}

		if asJSON {
			var raw any
			if err := decodeJSON(resp, &raw); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(raw)
		}

		var snap struct {
			TakenAt       time.Time `json:"takenAt"`
			TotalOnHand   int       `json:"totalOnHand"`
			TotalOnOrder  int       `json:"totalOnOrder"`
			ProductCount  int       `json:"productCount"`
			LowStockCount int       `json:"lowStockCount"`
			ByCategory    map[string]struct {
				OnHand        int `json:"onHand"`
				OnOrder       int `json:"onOrder"`
				ItemCount     int `json:"itemCount"`
				LowStockCount int `json:"lowStockCount"`
			} `json:"byCategory"`
		}
		if err := decodeJSON(resp, &snap); err != nil {
			return err
		}

		fmt.Printf("%s %s\n", colorize(colorBold, "Snapshot taken:"), snap.TakenAt.Local().Format(time.RFC3339))
		fmt.Printf("  %d products, %d on hand, %d on order\n", snap.ProductCount, snap.TotalOnHand, snap.TotalOnOrder)
		if snap.LowStockCount > 0 {
			fmt.Printf("  %s\n", colorize(colorYellow, fmt.Sprintf("%d products at or below reorder threshold", snap.LowStockCount)))
		}
		for name, c := range snap.ByCategory {
			fmt.Printf("  %-20s %5d on hand  %4d on order  %3d items\n", name, c.OnHand, c.OnOrder, c.ItemCount)
		}
		return nil
	},
}

func init() {
	snapshotCmd.Flags().Bool("json", false, "print the raw API response")
}

// --- events ---

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the recent inventory change log",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get("/api/events")
		if err != nil {
			return err
		}

		var body struct {
			Events []history.UpdateEvent `json:"events"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		if len(body.Events) == 0 {
			fmt.Println("No inventory changes recorded yet.")
			return nil
		}
		for _, ev := range body.Events {
			id := ev.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Printf("%s  %s  %d products, %d total on hand\n",
				colorize(colorCyan, id),
				ev.ObservedAt.Local().Format("2006-01-02 15:04"),
				ev.ProductCount,
				ev.TotalStock,
			)
		}
		return nil
	},
}

// --- poll ---

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Trigger an immediate poll cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post("/api/poll", nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Poll requested")
		return nil
	},
}

// --- seed ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the store with synthetic history",
	Long: `Seed the store with synthetic daily history for demos and development.

Run this while the server is stopped; it writes to the database directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer db.Close()

		store := history.New(db,
			history.WithRetention(cfg.History.RetentionSnapshots, cfg.History.RetentionEvents),
		)

		printStep("Seeding %d days of history...", days)
		appended, err := seed.Run(store, seed.Options{Days: days, Force: force})
		if err != nil {
			return err
		}

		printSuccess("Seeded %d snapshots into %s", appended, cfg.Storage.DataDir)
		return nil
	},
}

func init() {
	seedCmd.Flags().Int("days", 30, "number of daily snapshots to generate")
	seedCmd.Flags().Bool("force", false, "seed even if the store already holds history")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}

		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

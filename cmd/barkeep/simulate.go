package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barkeepd/barkeep/internal/sim"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>",
	Short: "Replay a scripted session against a fresh engine",
	Long: `Runs a scenario file — exporter events and placement faults on a
virtual timeline — through the same dispatch the daemon uses, then prints
the state it left behind. Nothing touches the real export, outbox or data
directories.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func runSimulate(_ *cobra.Command, args []string) error {
	sc, err := sim.LoadScenario(args[0])
	if err != nil {
		return err
	}
	res, err := sim.NewRunner(sc, logger).Run()
	if err != nil {
		return err
	}

	fmt.Printf("scenario:        %s\n", res.Scenario)
	fmt.Printf("character:       %s\n", res.Character)
	fmt.Printf("steps applied:   %d\n", res.Steps)
	fmt.Printf("virtual time:    %s\n", res.Elapsed)
	fmt.Printf("outbox commands: %d\n", res.Commands)
	fmt.Printf("highest seen:    %d\n", res.HighestSeen)
	fmt.Printf("durable levels:  %s\n", joinInts(res.SavedLevels))
	fmt.Println("final bars:")
	if len(res.Bars) == 0 {
		fmt.Println("  (empty)")
		return nil
	}
	slots := make([]int, 0, len(res.Bars))
	for slot := range res.Bars {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	for _, slot := range slots {
		fmt.Printf("  %3d  %s\n", slot, res.Bars[slot])
	}
	return nil
}

func joinInts(vals []int) string {
	if len(vals) == 0 {
		return "-"
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

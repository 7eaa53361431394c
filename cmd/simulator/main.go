package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:9999"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "full":
		fullCmd(apiURL, args)
	case "play":
		playCmd(apiURL, args)
	case "standings":
		standingsCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Gauntlet Simulator - Development tool for exercising tourney progression

USAGE:
  simulator <command> [options]

COMMANDS:
  full       Create a tourney with players, an opener, a redemption round and a final, then play it out
  play       Start a round, pick its charts, submit random scores and end it
  standings  Print the live standings of a round
  help       Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:9999)

EXAMPLES:
  # Run an 8-player gauntlet to completion
  simulator full

  # Build a 6-player gauntlet but leave the rounds for you to run
  simulator full --count=6 --setup-only

  # Play out round 12 as an existing tourney admin
  simulator play --round=12 --user=admin --password=secret

  # Show standings for round 12
  simulator standings --round=12`)
}

func fullCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("full", flag.ExitOnError)
	count := fs.Int("count", 8, "Number of players to enter")
	stages := fs.Int("stages", 2, "Stages per round")
	setupOnly := fs.Bool("setup-only", false, "Create the tourney and start it without playing any round")
	fs.Parse(args)

	if *count < 4 || *count > 64 {
		fmt.Println("Error: --count must be between 4 and 64")
		os.Exit(1)
	}
	if *stages < 1 {
		fmt.Println("Error: --stages must be at least 1")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)

	fmt.Println("=== Gauntlet Simulator: Full Flow ===")
	fmt.Println()

	// 1. Admin and tourney
	fmt.Print("Creating admin user and tourney... ")
	admin, err := client.RegisterAdmin("TourneyAdmin")
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	tourney, err := client.CreateTourney("Sim Gauntlet " + admin.DisplayName)
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK (user: %s, tourney: %s)\n", admin.DisplayName, tourney.Slug)

	// 2. Players
	fmt.Println()
	fmt.Printf("Entering %d players:\n", *count)
	for i := 1; i <= *count; i++ {
		player, err := client.AddPlayer(tourney.ID, fmt.Sprintf("Player%d", i), i)
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED: %v\n", i, *count, err)
			os.Exit(1)
		}
		fmt.Printf("  [%d/%d] %s entered\n", i, *count, player.Name)
	}

	// 3. Rounds. The opener is created first so it is the earliest round.
	fmt.Println()
	fmt.Print("Creating rounds... ")
	opener, err := client.CreateRound(tourney.ID, RoundSpec{
		Name:             "Opener",
		PlayersAdvancing: *count / 2,
		PointsPerStage:   []int{5, 3, 2, 1},
	})
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	final, err := client.CreateRound(tourney.ID, RoundSpec{Name: "Final", PlayersAdvancing: 1})
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	redemption, err := client.CreateRound(tourney.ID, RoundSpec{
		Name:             "Redemption",
		PlayersAdvancing: 1,
		NextRoundID:      &final.ID,
		ParentRoundID:    &opener.ID,
	})
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	if err := client.SetNextRound(opener.ID, final.ID); err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")

	rounds := []*Round{opener, redemption, final}

	// 4. Charts and stages
	fmt.Print("Creating charts and stages... ")
	for _, round := range rounds {
		for s := 1; s <= *stages; s++ {
			var pool []uint
			for c := 1; c <= 3; c++ {
				chart, err := client.CreateChart(fmt.Sprintf("%s S%d Chart %d", round.Name, s, c), 8+rand.Intn(8))
				if err != nil {
					fmt.Printf("FAILED\n  Error: %v\n", err)
					os.Exit(1)
				}
				pool = append(pool, chart.ID)
			}
			if _, err := client.CreateStage(round.ID, pool); err != nil {
				fmt.Printf("FAILED\n  Error: %v\n", err)
				os.Exit(1)
			}
		}
	}
	fmt.Println("OK")

	// 5. Start, seeding the opener with every player
	fmt.Print("Starting tourney... ")
	if err := client.StartTourney(tourney.ID, true); err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")

	if *setupOnly {
		fmt.Println()
		fmt.Println("=========================================")
		fmt.Println("  TOURNEY READY")
		fmt.Println("=========================================")
		fmt.Println()
		fmt.Printf("  Slug:        %s\n", tourney.Slug)
		for _, round := range rounds {
			fmt.Printf("  %-12s round %d\n", round.Name+":", round.ID)
		}
		fmt.Println()
		return
	}

	// 6. Play every round in order
	for _, round := range rounds {
		fmt.Println()
		if err := playRound(client, round.ID, round.Name); err != nil {
			fmt.Printf("  FAILED: %v\n", err)
			os.Exit(1)
		}
	}

	tourney, err = client.GetTourney(tourney.Slug)
	if err != nil {
		fmt.Printf("Failed to get tourney: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("=========================================")
	fmt.Printf("  TOURNEY %s\n", tourney.Status)
	fmt.Println("=========================================")
	fmt.Println()
}

func playCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	roundID := fs.Uint("round", 0, "Round ID (required)")
	user := fs.String("user", "", "Tourney admin display name (required)")
	password := fs.String("password", "", "Tourney admin password (required)")
	fs.Parse(args)

	if *roundID == 0 || *user == "" || *password == "" {
		fmt.Println("Error: --round, --user and --password are required")
		fmt.Println("\nUsage: simulator play --round=12 --user=admin --password=secret")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)
	if err := client.Login(*user, *password); err != nil {
		fmt.Printf("Failed to log in: %v\n", err)
		os.Exit(1)
	}

	if err := playRound(client, *roundID, "Round "+strconv.FormatUint(uint64(*roundID), 10)); err != nil {
		fmt.Printf("  FAILED: %v\n", err)
		os.Exit(1)
	}
}

func standingsCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("standings", flag.ExitOnError)
	roundID := fs.Uint("round", 0, "Round ID (required)")
	fs.Parse(args)

	if *roundID == 0 {
		fmt.Println("Error: --round is required")
		fmt.Println("\nUsage: simulator standings --round=12")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)
	standings, err := client.Standings(*roundID)
	if err != nil {
		fmt.Printf("Failed to get standings: %v\n", err)
		os.Exit(1)
	}
	printStandings(standings)
}

// playRound starts a round, picks a chart for every stage, submits a random
// score for every entry on every stage and ends the round.
func playRound(client *APIClient, roundID uint, name string) error {
	fmt.Printf("--- %s ---\n", name)

	entries, err := client.ListEntries(roundID)
	if err != nil {
		return err
	}
	fmt.Printf("  %d players registered\n", len(entries))

	if err := client.StartRound(roundID); err != nil {
		return err
	}

	stages, err := client.ListStages(roundID)
	if err != nil {
		return err
	}
	for i, stage := range stages {
		picked, err := client.PickChart(stage.ID)
		if err != nil {
			return err
		}
		fmt.Printf("  stage %d: chart %d\n", i+1, *picked.ChosenChartID)

		for _, entry := range entries {
			value := float64(rand.Intn(1_000_000))
			if err := client.SubmitScore(stage.ID, entry.ID, value); err != nil {
				return fmt.Errorf("%s: %w", entry.PlayerName, err)
			}
		}
	}

	standings, err := client.Standings(roundID)
	if err != nil {
		return err
	}
	printStandings(standings)

	result, err := client.EndRound(roundID)
	if err != nil {
		return err
	}
	fmt.Printf("  ended: %d advanced, %d redeemed, tourney %s\n",
		len(result.Advancement.Advanced), len(result.Advancement.Redeemed), result.Tourney.Status)
	return nil
}

func printStandings(standings *Standings) {
	mode := "cumulative"
	if standings.PointsMode {
		mode = "points"
	}
	fmt.Printf("  standings (%s):\n", mode)
	for _, row := range standings.Rows {
		marker := " "
		if row.Advancing {
			marker = "*"
		}
		fmt.Printf("  %s %2d. %-12s %10.1f  (%.0f)\n", marker, row.Rank, row.PlayerName, row.Total, row.Cumulative)
	}
}

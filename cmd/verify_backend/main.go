package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"relatorio-ocorrencias/internal/backend"
	"relatorio-ocorrencias/internal/config"
	"relatorio-ocorrencias/internal/dashboard"
	"relatorio-ocorrencias/internal/util"
)

func main() {
	cfg := config.Load()
	sala := flag.String("sala", "", "room id to list students for")
	aluno := flag.String("aluno", "", "student id to list occurrences for")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	client := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	fmt.Printf("Verifying backend at %s\n", cfg.BackendURL)

	failed := false
	fail := func(what string, err error) {
		failed = true
		fmt.Printf("FAIL %s: %v\n", what, err)
	}

	d := dashboard.Load(ctx, client)
	if d.Failed() {
		fail("statistics", fmt.Errorf("%s", d.Banner))
	} else {
		fmt.Printf("\nTotal: %s  Abertas: %s  Finalizadas: %s\n", d.Counters.Total, d.Counters.Abertas, d.Counters.Finalizadas)
		for _, t := range []*dashboard.Table{d.TypeTable, d.RoomTable, d.TutorTable} {
			if t != nil {
				printTable(t)
			}
		}
		fmt.Printf("\nCharts: %d\n", len(d.Charts))
		for i, c := range d.Charts {
			fmt.Printf("- [%d] %s (%s)\n", i, c.Title, c.Spec.Type)
		}
	}

	rooms, err := client.Rooms(ctx)
	if err != nil {
		fail("rooms", err)
	} else {
		fmt.Printf("\nRooms with occurrences: %d\n", len(rooms))
		for _, r := range rooms {
			fmt.Printf("- %s: %s\n", r.ID, r.Name)
		}
	}

	if *sala != "" {
		students, err := client.Students(ctx, *sala)
		if err != nil {
			fail("students of room "+*sala, err)
		} else {
			fmt.Printf("\nStudents in room %s: %d\n", *sala, len(students))
			for _, s := range students {
				fmt.Printf("- %s: %s\n", s.ID, s.Name)
			}
		}
	}

	if *aluno != "" {
		occs, err := client.Occurrences(ctx, *aluno)
		if err != nil {
			fail("occurrences of student "+*aluno, err)
		} else {
			fmt.Printf("\nOccurrences of student %s: %d\n", *aluno, len(occs))
			for _, o := range occs {
				fmt.Printf("- Nº %s - %s (%s) %s\n", o.Number, util.FormatTimestamp(o.Timestamp), o.Status, o.Description)
			}
		}
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("\nOK")
}

func printTable(t *dashboard.Table) {
	fmt.Printf("\n%s\n", t.Anchor)
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

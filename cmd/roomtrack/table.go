package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"roomtrack/pkg/domain"
)

const tableTimeLayout = "2006-01-02 15:04:05"

func printItemTable(w io.Writer, items []domain.Item) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRFID\tNAME\tLOCATION\tUPDATED")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			item.ID, item.RFIDTag, item.Name, item.CurrentLocation,
			item.LastUpdatedTime().Format(tableTimeLayout))
	}
	return tw.Flush()
}

func printMovementTable(w io.Writer, movements []domain.Movement) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tITEM\tRFID\tFROM\tTO")
	for _, mv := range movements {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			mv.Time().Format(tableTimeLayout), mv.ItemName, mv.RFIDTag, mv.FromLocation, mv.ToLocation)
	}
	return tw.Flush()
}

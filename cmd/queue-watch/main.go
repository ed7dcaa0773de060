// Command queue-watch follows one request queue the way an operator screen
// does: it loads the current page, then applies the change stream to it and
// prints every row that moves.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/internal/realtime"
)

func main() {
	flags := pflag.NewFlagSet("queue-watch", pflag.ExitOnError)
	flags.String("base-url", "http://localhost:8080/api/v1", "API base URL")
	flags.String("token", "", "operator access token")
	flags.String("table", "recharge_requests", "request collection to follow")
	flags.StringSlice("status", nil, "statuses the queue shows")
	flags.String("operator", "", "operator id; holds by others are reported")
	flags.Duration("retry", 3*time.Second, "delay before reconnecting")
	_ = flags.Parse(os.Args[1:])

	v := viper.New()
	v.SetEnvPrefix("QUEUE_WATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		log.Fatalf("bind flags: %v", err)
	}

	logr, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	table := v.GetString("table")
	if _, err := models.ParseRequestType(table); err != nil {
		logr.Fatal("invalid table", zap.Error(err))
	}
	statuses := v.GetStringSlice("status")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &realtime.Client{
		BaseURL: v.GetString("base-url"),
		Token:   v.GetString("token"),
		HTTP:    &http.Client{},
	}
	state := realtime.NewListState(v.GetString("operator"), statuses)

	rows, err := client.Snapshot(ctx, table, statuses, 200)
	if err != nil {
		logr.Fatal("load queue", zap.Error(err))
	}
	state.Reset(rows)
	for _, row := range state.Rows() {
		printRow("row", row)
	}

	lastEventID := ""
	for {
		err := client.Watch(ctx, table, statuses, lastEventID, func(id string, ev models.ChangeEvent) error {
			lastEventID = id
			report(state, ev, state.Apply(ev))
			return nil
		})
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("stream closed")
		}
		logr.Warn("event stream interrupted", zap.Error(err), zap.String("last_event_id", lastEventID))
		select {
		case <-ctx.Done():
			return
		case <-time.After(v.GetDuration("retry")):
		}
	}
}

func report(state *realtime.ListState, ev models.ChangeEvent, out realtime.Outcome) {
	switch {
	case out.Removed:
		fmt.Printf("%-7s %s\n", "removed", ev.ID)
	case out.Changed:
		if row, ok := state.Get(ev.ID); ok {
			printRow(string(ev.Type), row)
		}
	}
	if n := out.LockedByOther; n != nil {
		fmt.Printf("%-7s %s held by %s (%s)\n", "locked", n.ID, n.By, n.Modal)
	}
	if out.ModalClosed {
		fmt.Printf("%-7s %s released; modal closed\n", "closed", ev.ID)
	}
}

func printRow(label string, row realtime.Row) {
	holder := "-"
	if row.Processing.By != nil {
		holder = *row.Processing.By
	}
	fmt.Printf("%-7s %s team=%s status=%s lock=%s by=%s\n", label, row.ID, row.TeamCode, row.Status, row.Processing.Status, holder)
}

package main

import (
	"fmt"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/config"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// The generation queue only ever holds envelopes the pool could not decode or
// route. A lot that fails while generating ends as an error progress record and
// is retried through the API.
var deadLetterQueues = map[string]string{
	"email":         worker.QueueEmail,
	"complaint-ack": worker.QueueComplaintAck,
	"generation":    worker.QueueGeneration,
}

func newDeadLettersCmd() *cobra.Command {
	var queueName string

	cmd := &cobra.Command{
		Use:   "dead-letters",
		Short: "Inspect or requeue dead-lettered worker jobs",
	}
	cmd.PersistentFlags().StringVar(&queueName, "queue", "email", "Queue: email, complaint-ack or generation (undecodable envelopes only)")

	open := func() (*worker.DeadLetters, string, error) {
		queue, ok := deadLetterQueues[queueName]
		if !ok {
			return nil, "", fmt.Errorf("unknown --queue %q", queueName)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, "", err
		}
		rdb, err := infra.NewRedis(cfg.RedisURL)
		if err != nil {
			return nil, "", err
		}
		return worker.NewDeadLetters(rdb), queue, nil
	}

	var limit int64
	list := &cobra.Command{
		Use:   "list",
		Short: "Print the newest dead-lettered jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			dl, queue, err := open()
			if err != nil {
				return err
			}
			total, err := dl.Len(cmd.Context(), queue)
			if err != nil {
				return err
			}
			entries, err := dl.Peek(cmd.Context(), queue, limit)
			if err != nil {
				return err
			}
			log.Info().Str("queue", queue).Int64("total", total).Int("shown", len(entries)).Msg("dead letters")
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	list.Flags().Int64Var(&limit, "limit", 20, "Maximum entries to print")

	var max int
	requeue := &cobra.Command{
		Use:   "requeue",
		Short: "Move dead-lettered jobs back onto their queue, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			dl, queue, err := open()
			if err != nil {
				return err
			}
			n, err := dl.Requeue(cmd.Context(), queue, max)
			fmt.Fprintf(cmd.OutOrStdout(), "requeued %d\n", n)
			return err
		},
	}
	requeue.Flags().IntVar(&max, "max", 100, "Maximum entries to move")

	cmd.AddCommand(list, requeue)
	return cmd
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/codexrun/codexrun/internal/config"
	"github.com/codexrun/codexrun/internal/notify"
)

// envWebhookURL names the environment fallback for the webhook destination.
const envWebhookURL = "SLACK_WEBHOOK_URL"

// notifyOptions holds the notify command flags.
type notifyOptions struct {
	// EventType names the hook event being reported.
	EventType string
	// WebhookURL overrides the webhook destination.
	WebhookURL string
	// Message replaces the text derived from the event payload.
	Message string
	// Simple sends plain text without the block layout.
	Simple bool
}

// notifyCommand posts a hook event notification to a webhook. The event
// payload, when one is piped in, is read from stdin as JSON.
func notifyCommand(stdout io.Writer, stderr io.Writer) *cobra.Command {
	opts := &notifyOptions{}
	cmd := &cobra.Command{
		Use:   "notify --event-type <type>",
		Short: "Send a hook event notification to the configured webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return exitStatus(runNotify(stdout, stderr, opts))
		},
	}
	applyNotifyFlags(cmd.Flags(), opts)
	_ = cmd.MarkFlagRequired("event-type")
	return cmd
}

// applyNotifyFlags defines the notify command flags.
func applyNotifyFlags(flags *pflag.FlagSet, opts *notifyOptions) {
	flags.StringVar(&opts.EventType, "event-type", "", "Hook event type ("+strings.Join(notify.KnownEventKinds(), "|")+")")
	flags.StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook URL (defaults to "+envWebhookURL+" or the settings file)")
	flags.StringVar(&opts.Message, "message", "", "Override the notification text")
	flags.BoolVar(&opts.Simple, "simple", false, "Send plain text without the block layout")
}

// runNotify validates the event, resolves the destination, and delivers the
// notification. Each delivery is reported as an OK or ERROR line.
func runNotify(stdout io.Writer, stderr io.Writer, opts *notifyOptions) int {
	if !notify.IsKnownEventKind(opts.EventType) {
		fmt.Fprintf(stderr, "ERROR: unknown event type %q (expected one of %s)\n", opts.EventType, strings.Join(notify.KnownEventKinds(), ", "))
		return 1
	}

	settings := loadSettingsOrWarn(stderr)
	url := resolveWebhookURL(opts.WebhookURL, os.Getenv(envWebhookURL), settings)
	if url == "" {
		fmt.Fprintln(stderr, "ERROR: no webhook URL configured; set --webhook-url, "+envWebhookURL+", or webhook_url in the settings file")
		return 1
	}

	payload := readEventPayload(os.Stdin, stderr)
	details := notify.ExtractEventDetails(payload)
	notification := notify.BuildEventNotification(notify.EventKind(opts.EventType), details, opts.Message, time.Now(), opts.Simple)

	center := notify.NewCenter()
	center.RegisterChannel(notify.NewWebhookChannel("webhook", url), notify.ChannelConfig{Enabled: true})

	status := 0
	for _, result := range center.Send(context.Background(), notification) {
		if result.Status == notify.StatusDelivered {
			fmt.Fprintf(stdout, "OK: delivered %s event to %s\n", opts.EventType, result.Channel)
			continue
		}
		fmt.Fprintf(stderr, "ERROR: %v\n", result.Err)
		status = 1
	}
	return status
}

// resolveWebhookURL picks the webhook destination: the explicit flag wins,
// then the environment, then the settings file.
func resolveWebhookURL(flagValue string, envValue string, settings *config.Settings) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue != "" {
		return envValue
	}
	return settings.Webhook()
}

// readEventPayload decodes the hook event JSON from stdin. An interactive
// terminal means nothing is being piped in; an empty or malformed payload
// degrades to no details rather than blocking the notification.
func readEventPayload(stdin *os.File, stderr io.Writer) map[string]any {
	if term.IsTerminal(int(stdin.Fd())) {
		return map[string]any{}
	}

	data, err := io.ReadAll(stdin)
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		fmt.Fprintf(stderr, "WARN: invalid event payload: %v\n", err)
		return map[string]any{}
	}
	return payload
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"insightchat-backend/internal/conversation"
	"insightchat-backend/internal/insights"
	"insightchat-backend/internal/models"
	"insightchat-backend/internal/quota"
	"insightchat-backend/internal/services"
)

var (
	askData    string
	askSheet   string
	askMode    string
	askTimeout time.Duration
)

// newModel is replaced in tests.
var newModel = func(s *Settings) (conversation.Model, func(), error) {
	if s.GeminiAPIKey == "" {
		return nil, nil, errors.New("gemini_api_key is not set (config file or INSIGHTCHAT_GEMINI_API_KEY)")
	}
	svc, err := services.NewGeminiService(s.GeminiAPIKey, s.GeminiModel, 1)
	if err != nil {
		return nil, nil, err
	}
	return svc, svc.Close, nil
}

// staticRecords serves an already loaded file as the raw data source.
type staticRecords []models.Record

func (s staticRecords) FetchRecords(ctx context.Context, userID, fileID uuid.UUID) ([]models.Record, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return s, nil
}

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask one question about a data file and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if askData == "" {
			return errors.New("--data is required")
		}
		mode := conversation.Mode(askMode)
		if !mode.Valid() {
			return fmt.Errorf("unsupported --mode %q (use analysis|rawData)", askMode)
		}
		settings, err := loadSettings(cfgFile)
		if err != nil {
			return err
		}
		records, err := loadRecords(askData, askSheet)
		if err != nil {
			return err
		}

		model, closeModel, err := newModel(settings)
		if err != nil {
			return err
		}
		if closeModel != nil {
			defer closeModel()
		}

		var gate quota.Checker = quota.Unmetered{}
		if settings.UsageServiceURL != "" {
			gate = quota.NewGate(quota.NewHTTPUsageClient(settings.UsageServiceURL, 10*time.Second), settings.quotaRetryDelay())
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
		defer cancel()

		fileID := uuid.New()
		conv := conversation.New(uuid.Nil, fileID, conversation.Deps{
			Model:   model,
			Quota:   gate,
			RawData: staticRecords(records),
			Limits:  settings.limits(),
		})
		conv.Bootstrap(ctx, insights.Analyze(fileID, records, insights.DefaultOptions()))
		if err := conv.SetMode(ctx, mode); err != nil {
			return err
		}

		msgs, err := conv.Send(ctx, settings.UsageToken, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printTurn(cmd, msgs)
	},
}

// printTurn writes everything a turn appended after the user's own message.
func printTurn(cmd *cobra.Command, msgs []models.Message) error {
	out := cmd.OutOrStdout()
	for _, m := range msgs {
		switch m.Role {
		case models.RoleUser:
			continue
		case models.RoleSystem:
			fmt.Fprintln(out, "ℹ", m.Content)
			continue
		}
		if m.Content != "" {
			fmt.Fprintln(out, m.Content)
		}
		if len(m.ChartSuggestions) == 0 && len(m.Tables) == 0 {
			continue
		}
		fmt.Fprintln(out)
		extras := map[string]any{}
		if len(m.ChartSuggestions) > 0 {
			extras["charts"] = m.ChartSuggestions
		}
		if len(m.Tables) > 0 {
			extras["tables"] = m.Tables
		}
		if err := writeOutput(out, outputFormat, extras); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	askCmd.Flags().StringVarP(&askData, "data", "d", "", "data file (.json, .csv, .tsv, .xlsx)")
	askCmd.Flags().StringVar(&askSheet, "sheet", "", "worksheet name for .xlsx input")
	askCmd.Flags().StringVarP(&askMode, "mode", "m", string(conversation.ModeAnalysis), "prompt mode: analysis|rawData")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 2*time.Minute, "overall time limit for the question")
}

package client

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	userColor      = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgGreen)
	errorColor     = color.New(color.FgRed)
	sourceColor    = color.New(color.Faint)
)

// AskCmd asks a question about the active document.
func AskCmd() *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the processed document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(api, cmd.OutOrStdout(), strings.Join(args, " "), showSources, outputJSON)
		},
	}

	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Print the passages the answer was based on")

	return cmd
}

func runAsk(api *APIClient, w io.Writer, question string, showSources, outputJSON bool) error {
	resp, err := api.Post("/session/ask", AskRequest{Question: question})
	if err != nil {
		return fmt.Errorf("failed to ask question: %w", err)
	}

	var answer Answer
	if err := decode(resp, &answer); err != nil {
		return err
	}

	if outputJSON {
		printJSON(w, answer)
		return nil
	}

	fmt.Fprintln(w, answer.Answer)
	if showSources {
		printSources(w, answer.Sources)
	}
	return nil
}

// HistoryCmd prints the conversation for the active document.
func HistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the conversation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runHistory(api, cmd.OutOrStdout(), outputJSON)
		},
	}
}

func runHistory(api *APIClient, w io.Writer, outputJSON bool) error {
	resp, err := api.Get("/session/history")
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	var history History
	if err := decode(resp, &history); err != nil {
		return err
	}

	if outputJSON {
		printJSON(w, history)
		return nil
	}

	if len(history.Turns) == 0 {
		fmt.Fprintln(w, "No conversation yet.")
		return nil
	}
	for _, turn := range history.Turns {
		printTurn(w, turn)
	}
	return nil
}

func printTurn(w io.Writer, turn Turn) {
	switch {
	case turn.Role == "user":
		userColor.Fprint(w, "You: ")
		fmt.Fprintln(w, turn.Content)
	case turn.Error != "":
		errorColor.Fprint(w, "Error: ")
		fmt.Fprintln(w, turn.Error)
	default:
		assistantColor.Fprint(w, "Assistant: ")
		fmt.Fprintln(w, turn.Content)
		printSources(w, turn.Sources)
	}
}

func printSources(w io.Writer, sources []Chunk) {
	for _, s := range sources {
		sourceColor.Fprintf(w, "  [chunk %d] %s\n", s.Index, snippet(s.Text, 80))
	}
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

func ClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the conversation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete("/session/history"); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
}

// StatusCmd shows which document is active.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runStatus(api, cmd.OutOrStdout(), outputJSON)
		},
	}
}

func runStatus(api *APIClient, w io.Writer, outputJSON bool) error {
	resp, err := api.Get("/session")
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	var status SessionStatus
	if err := decode(resp, &status); err != nil {
		return err
	}

	if outputJSON {
		printJSON(w, status)
		return nil
	}

	if !status.Active {
		fmt.Fprintln(w, "No document processed. Run 'docqa process <id>' first.")
		return nil
	}
	fmt.Fprintf(w, "Document: %s (%s)\n", status.DocumentName, status.DocumentID)
	fmt.Fprintf(w, "Chunks: %d\n", status.ChunkCount)
	fmt.Fprintf(w, "Turns: %d\n", status.TurnCount)
	return nil
}

// FindCmd runs a keyword lookup against the active document.
func FindCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "find <query>",
		Short: "Find passages containing the query terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runFind(api, cmd.OutOrStdout(), strings.Join(args, " "), limit, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of passages")

	return cmd
}

func runFind(api *APIClient, w io.Writer, query string, limit int, outputJSON bool) error {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	resp, err := api.Get("/session/passages?" + params.Encode())
	if err != nil {
		return fmt.Errorf("failed to find passages: %w", err)
	}

	var passages Passages
	if err := decode(resp, &passages); err != nil {
		return err
	}

	if outputJSON {
		printJSON(w, passages)
		return nil
	}

	if len(passages.Passages) == 0 {
		fmt.Fprintln(w, "No matching passages.")
		return nil
	}
	for _, p := range passages.Passages {
		fmt.Fprintf(w, "[chunk %d] score=%.3f\n%s\n\n", p.Chunk.Index, p.Score, p.Chunk.Text)
	}
	return nil
}

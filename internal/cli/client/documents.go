package client

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// ListCmd lists the documents in the store.
func ListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents available for processing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(api, cmd.OutOrStdout(), limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of documents (0 for all)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runList(api *APIClient, w io.Writer, limit int, cursor string, outputJSON bool) error {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	path := "/documents"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var list DocumentList
	if err := decode(resp, &list); err != nil {
		return err
	}

	if outputJSON {
		printJSON(w, list)
		return nil
	}

	if len(list.Documents) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	for _, d := range list.Documents {
		fmt.Fprintf(w, "%s  %-40s %8d  %s\n", d.ID, d.Name, d.Size, d.ModifiedAt)
	}
	if list.HasMore {
		fmt.Fprintf(w, "\nMore documents: docqa list --limit %d --cursor %s\n", limit, list.Cursor)
	}
	return nil
}

// UploadCmd uploads a local PDF, DOCX or text file.
func UploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(api, cmd.OutOrStdout(), args[0], outputJSON)
		},
	}
}

func runUpload(api *APIClient, w io.Writer, path string, outputJSON bool) error {
	resp, err := api.UploadFile("/documents", path)
	if err != nil {
		return fmt.Errorf("failed to upload document: %w", err)
	}

	var doc Document
	if err := decode(resp, &doc); err != nil {
		return err
	}

	if outputJSON {
		printJSON(w, doc)
		return nil
	}
	fmt.Fprintf(w, "Uploaded %s\n", doc.Name)
	fmt.Fprintf(w, "ID: %s\n", doc.ID)
	return nil
}

func DeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDelete(api, cmd.OutOrStdout(), args[0], outputJSON)
		},
	}
}

func runDelete(api *APIClient, w io.Writer, id string, outputJSON bool) error {
	if _, err := api.Delete("/documents/" + url.PathEscape(id)); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if outputJSON {
		printJSON(w, map[string]interface{}{"id": id, "deleted": true})
		return nil
	}
	fmt.Fprintf(w, "Deleted document: %s\n", id)
	return nil
}

// ProcessCmd starts an index build and optionally waits for it.
func ProcessCmd() *cobra.Command {
	var (
		wait     bool
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "process <id>",
		Short: "Build the question-answering index for a document",
		Long: `Build the question-answering index for a document.

The build runs in the background on the server. With --wait the command
polls the job until it completes or fails.

Examples:
  docqa process <document_id>
  docqa process <document_id> --wait`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runProcess(api, cmd.OutOrStdout(), args[0], processOptions{
				wait:     wait,
				interval: interval,
				timeout:  timeout,
			}, outputJSON)
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the build to finish")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval with --wait")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Give up waiting after this long")

	return cmd
}

type processOptions struct {
	wait     bool
	interval time.Duration
	timeout  time.Duration
}

func runProcess(api *APIClient, w io.Writer, id string, opts processOptions, outputJSON bool) error {
	resp, err := api.Post("/documents/"+url.PathEscape(id)+"/process", nil)
	if err != nil {
		return fmt.Errorf("failed to start processing: %w", err)
	}

	var job Job
	if err := decode(resp, &job); err != nil {
		return err
	}

	if opts.wait {
		job, err = waitForJob(api, job, opts)
		if err != nil {
			return err
		}
	}

	if outputJSON {
		printJSON(w, job)
	} else {
		printJob(w, job)
	}

	if job.Status == "failed" {
		return fmt.Errorf("processing failed: %s", job.Error)
	}
	return nil
}

func waitForJob(api *APIClient, job Job, opts processOptions) (Job, error) {
	deadline := time.Now().Add(opts.timeout)
	for !job.Done() {
		if time.Now().After(deadline) {
			return job, fmt.Errorf("timed out waiting for job %s", job.ID)
		}
		time.Sleep(opts.interval)

		resp, err := api.Get("/jobs/" + url.PathEscape(job.ID))
		if err != nil {
			return job, fmt.Errorf("failed to get job: %w", err)
		}
		if err := decode(resp, &job); err != nil {
			return job, err
		}
	}
	return job, nil
}

func printJob(w io.Writer, job Job) {
	fmt.Fprintf(w, "Job: %s\n", job.ID)
	fmt.Fprintf(w, "Status: %s\n", job.Status)
	switch job.Status {
	case "completed":
		fmt.Fprintf(w, "Chunks: %d\n", job.ChunkCount)
	case "failed":
		fmt.Fprintf(w, "Error: %s (%s)\n", job.Error, job.ErrorCode)
	}
}

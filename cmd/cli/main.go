package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/internal/domain"
	"github.com/lastdm/ldm-bridge/pkg/logger"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "ldm-bridge",
		Short: "ldm-bridge CLI - hand browser downloads to LDM",
		Long:  `A command-line interface for the bridge between the browser and the Last Download Manager.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:45679", "Bridge server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(grabCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(logsCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// call sends a JSON request to the bridge and decodes the reply into out.
// Non-2xx replies are returned as errors carrying the server's message,
// unless acceptError is set.
func call(method, path string, payload, out interface{}, acceptError bool) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if (resp.StatusCode < 200 || resp.StatusCode > 299) && !acceptError {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &failure) == nil && failure.Error != "" {
			return errors.New(failure.Error)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check whether the bridge and LDM are reachable",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		health, err := fetchHealth(serverURL)
		if err != nil {
			fail(fmt.Errorf("%w: %v", errBridgeDown, err))
		}
		fmt.Printf("Bridge: ok (%s)\n", health.Version)

		var state domain.ConnectionState
		if err := call(http.MethodGet, "/api/v1/connection", nil, &state, false); err != nil {
			fail(err)
		}

		if !state.Connected {
			fmt.Println("LDM: not connected")
			os.Exit(1)
		}
		fmt.Printf("LDM: connected (%s %s)\n", state.App, state.Version)
	},
}

var sendCmd = &cobra.Command{
	Use:   "send [url]",
	Short: "Send a URL to LDM",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		referer, _ := cmd.Flags().GetString("referer")
		payload := map[string]string{
			"url":    args[0],
			"source": string(domain.SourceManual),
		}
		if referer != "" {
			payload["referer"] = referer
		}

		var reply domain.Reply
		if err := call(http.MethodPost, "/api/v1/downloads", payload, &reply, true); err != nil {
			fail(err)
		}
		if !reply.Success {
			fail(errors.New(reply.Error))
		}
		fmt.Println("Sent to LDM")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show active LDM transfers",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		watch, _ := cmd.Flags().GetBool("watch")
		if watch {
			watchStatus()
			return
		}

		var status domain.StatusReport
		if err := call(http.MethodGet, "/api/v1/status", nil, &status, false); err != nil {
			fail(err)
		}
		printStatus(&status)
	},
}

// watchStatus prints every report pushed over the status WebSocket until interrupted
func watchStatus() {
	log := logger.NewQuiet()
	defer log.Sync()

	u, err := url.Parse(serverURL)
	if err != nil {
		fail(err)
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/api/v1/status/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		fail(err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	reports := make(chan domain.StatusReport)
	go func() {
		defer close(reports)
		for {
			var status domain.StatusReport
			if err := conn.ReadJSON(&status); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn("Status stream closed", zap.Error(err))
				}
				return
			}
			reports <- status
		}
	}()

	for {
		select {
		case status, ok := <-reports:
			if !ok {
				return
			}
			fmt.Printf("--- %s\n", time.Now().Format("15:04:05"))
			printStatus(&status)
		case <-interrupt:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func printStatus(status *domain.StatusReport) {
	fmt.Printf("Active downloads: %d  Total speed: %s/s\n", status.ActiveDownloads, formatBytes(int64(status.TotalSpeed)))
	if len(status.Downloads) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tPROGRESS\tSPEED\tDOWNLOADED\tSIZE")
	for _, d := range status.Downloads {
		fmt.Fprintf(w, "%s\t%.1f%%\t%s/s\t%s\t%s\n",
			truncate(d.Filename, 40),
			d.Progress,
			formatBytes(int64(d.Speed)),
			formatBytes(d.Downloaded),
			formatBytes(d.Size))
	}
	w.Flush()
}

var classifyCmd = &cobra.Command{
	Use:   "classify [url]",
	Short: "Show whether a download would be intercepted",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		size, _ := cmd.Flags().GetInt64("size")
		payload := map[string]interface{}{"url": args[0], "fileSize": size}

		var decision struct {
			Accept bool   `json:"accept"`
			Reason string `json:"reason"`
			Detail string `json:"detail"`
		}
		if err := call(http.MethodPost, "/api/v1/classify", payload, &decision, false); err != nil {
			fail(err)
		}

		if decision.Accept {
			fmt.Println("intercept")
			return
		}
		fmt.Printf("skip (%s): %s\n", decision.Reason, decision.Detail)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [page-url]",
	Short: "List the videos and audio found on a page",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		var reply domain.Reply
		if err := call(http.MethodPost, "/api/v1/scan", map[string]string{"pageUrl": args[0]}, &reply, true); err != nil {
			fail(err)
		}
		if !reply.Success {
			fail(errors.New(reply.Error))
		}

		if len(reply.Videos) == 0 {
			fmt.Println("No media found")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tQUALITY\tTITLE\tURL")
		for _, v := range reply.Videos {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Type, v.Quality, truncate(v.Title, 30), v.URL)
		}
		w.Flush()
	},
}

var grabCmd = &cobra.Command{
	Use:   "grab [page-url]",
	Short: "List the links on a page",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		mediaOnly, _ := cmd.Flags().GetBool("media")
		send, _ := cmd.Flags().GetBool("send")

		var reply domain.Reply
		payload := map[string]interface{}{"pageUrl": args[0], "mediaOnly": mediaOnly}
		if err := call(http.MethodPost, "/api/v1/grab", payload, &reply, true); err != nil {
			fail(err)
		}
		if !reply.Success {
			fail(errors.New(reply.Error))
		}

		failed := 0
		for _, link := range reply.Links {
			if !send {
				fmt.Println(link)
				continue
			}

			var result domain.Reply
			err := call(http.MethodPost, "/api/v1/downloads", map[string]string{
				"url":     link,
				"referer": reply.URL,
				"source":  string(domain.SourceScan),
			}, &result, true)
			switch {
			case err != nil:
				failed++
				fmt.Printf("FAIL %s: %v\n", link, err)
			case !result.Success:
				failed++
				fmt.Printf("FAIL %s: %s\n", link, result.Error)
			default:
				fmt.Printf("SENT %s\n", link)
			}
		}

		if send {
			fmt.Printf("%d sent, %d failed\n", len(reply.Links)-failed, failed)
		}
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent submissions",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		clearAll, _ := cmd.Flags().GetBool("clear")
		if clearAll {
			if err := call(http.MethodDelete, "/api/v1/history", nil, nil, false); err != nil {
				fail(err)
			}
			fmt.Println("History cleared")
			return
		}

		limit, _ := cmd.Flags().GetInt("limit")
		var entries []domain.HistoryEntry
		if err := call(http.MethodGet, fmt.Sprintf("/api/v1/history?limit=%d", limit), nil, &entries, false); err != nil {
			fail(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tSOURCE\tRESULT\tURL")
		for _, e := range entries {
			result := "ok"
			if !e.Success {
				result = "failed: " + e.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04"),
				e.Source,
				truncate(result, 30),
				truncate(e.URL, 60))
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show submission statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		reset, _ := cmd.Flags().GetBool("reset")
		if reset {
			if err := call(http.MethodDelete, "/api/v1/stats", nil, nil, false); err != nil {
				fail(err)
			}
			fmt.Println("Statistics reset")
			return
		}

		var stats domain.Stats
		if err := call(http.MethodGet, "/api/v1/stats", nil, &stats, false); err != nil {
			fail(err)
		}

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:  %d\n", stats.TotalDownloads)
		fmt.Printf("  Today:  %d\n", stats.TodayDownloads)
		fmt.Printf("  Volume: %s\n", formatBytes(stats.TotalBytes))
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [category]",
	Short: "View intercept or error logs",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		search, _ := cmd.Flags().GetString("search")
		date, _ := cmd.Flags().GetString("date")
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		query := url.Values{}
		query.Set("limit", fmt.Sprint(limit))
		if date != "" {
			query.Set("date", date)
		}
		path := "/api/v1/logs/" + url.PathEscape(args[0])
		if search != "" {
			path += "/search"
			query.Set("q", search)
		}

		var result struct {
			Entries []struct {
				Timestamp string                 `json:"timestamp"`
				Level     string                 `json:"level"`
				Message   string                 `json:"message"`
				Fields    map[string]interface{} `json:"fields"`
			} `json:"entries"`
		}
		if err := call(http.MethodGet, path+"?"+query.Encode(), nil, &result, false); err != nil {
			fail(err)
		}

		if jsonOutput {
			prettyJSON, _ := json.MarshalIndent(result.Entries, "", "  ")
			fmt.Println(string(prettyJSON))
			return
		}

		for _, e := range result.Entries {
			fields, _ := json.Marshal(e.Fields)
			fmt.Printf("%s %-5s %s %s\n", e.Timestamp, strings.ToUpper(e.Level), e.Message, fields)
		}
	},
}

func init() {
	sendCmd.Flags().StringP("referer", "r", "", "Referer to send with the URL")
	statusCmd.Flags().BoolP("watch", "w", false, "Stream status updates")
	classifyCmd.Flags().Int64P("size", "s", 0, "Declared file size in bytes")
	grabCmd.Flags().BoolP("media", "m", false, "Only media and archive links")
	grabCmd.Flags().Bool("send", false, "Send every link to LDM")
	historyCmd.Flags().Bool("clear", false, "Delete all history entries")
	historyCmd.Flags().IntP("limit", "n", domain.DefaultHistoryLimit, "Number of entries")
	statsCmd.Flags().Bool("reset", false, "Reset all counters")
	logsCmd.Flags().StringP("search", "q", "", "Only entries containing this text")
	logsCmd.Flags().StringP("date", "d", "", "Day to read (YYYY-MM-DD, default today)")
	logsCmd.Flags().IntP("limit", "n", 100, "Number of entries")
	logsCmd.Flags().BoolP("json", "j", false, "Output in JSON format")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

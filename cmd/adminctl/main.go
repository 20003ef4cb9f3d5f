// Package main provides the operator CLI entry point.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("utabox-adminctl", "utabox karaoke session admin client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set UTABOX_ADMIN_TOKEN env)").Envar("UTABOX_ADMIN_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show session status")

	// queue commands
	queueCmd     = app.Command("queue", "List the queue")
	queueAddCmd  = app.Command("add", "Add a library song to the queue")
	queueAddSong = queueAddCmd.Arg("song-id", "Library song ID").Required().String()
	removeCmd    = app.Command("remove", "Remove a queue item")
	removeItem   = removeCmd.Arg("item-id", "Queue item ID").Required().String()
	loadCmd      = app.Command("load", "Load a queue item into the engine")
	loadItem     = loadCmd.Arg("item-id", "Queue item ID").Required().String()

	// request commands
	requestsCmd = app.Command("requests", "List song requests")
	approveCmd  = app.Command("approve", "Approve a pending request")
	approveID   = approveCmd.Arg("request-id", "Request ID (UUID)").Required().String()
	rejectCmd   = app.Command("reject", "Reject a pending request")
	rejectID    = rejectCmd.Arg("request-id", "Request ID (UUID)").Required().String()
	retryCmd    = app.Command("retry", "Retry queueing an approved request")
	retryID     = retryCmd.Arg("request-id", "Request ID (UUID)").Required().String()

	// accepting command
	acceptingCmd = app.Command("accepting", "Open or close request intake")
	acceptingVal = acceptingCmd.Arg("state", "on or off").Required().Enum("on", "off")

	// kick command
	kickCmd   = app.Command("kick", "Kick a guest")
	kickGuest = kickCmd.Arg("guest-id", "Guest ID (UUID)").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case statusCmd.FullCommand():
		status()
	case queueCmd.FullCommand():
		listQueue()
	case queueAddCmd.FullCommand():
		call("POST", "/api/v1/queue", map[string]any{"songId": *queueAddSong, "requester": "admin"})
	case removeCmd.FullCommand():
		call("DELETE", "/api/v1/queue/"+*removeItem, nil)
	case loadCmd.FullCommand():
		call("POST", "/api/v1/queue/"+*loadItem+"/load", nil)
	case requestsCmd.FullCommand():
		listRequests()
	case approveCmd.FullCommand():
		call("POST", "/api/v1/requests/"+*approveID+"/approve", nil)
	case rejectCmd.FullCommand():
		call("POST", "/api/v1/requests/"+*rejectID+"/reject", nil)
	case retryCmd.FullCommand():
		call("POST", "/api/v1/requests/"+*retryID+"/retry", nil)
	case acceptingCmd.FullCommand():
		call("POST", "/api/v1/requests/accepting", map[string]any{"accepting": *acceptingVal == "on"})
	case kickCmd.FullCommand():
		call("POST", "/api/v1/guests/"+*kickGuest+"/kick", nil)
	}
}

// doRequest performs one API call and decodes the JSON response.
func doRequest(method, path string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, *server+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		if msg, ok := out["error"].(string); ok {
			return nil, fmt.Errorf("%s (HTTP %d)", msg, resp.StatusCode)
		}
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return out, nil
}

// call performs a bare mutation and prints OK.
func call(method, path string, body any) {
	if _, err := doRequest(method, path, body); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func status() {
	s, err := doRequest("GET", "/api/v1/session", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n=== CURRENT SESSION STATUS ===")
	fmt.Printf("Room: %v\n", s["roomName"])
	fmt.Printf("Accepting Requests: %v\n", s["accepting"])
	fmt.Printf("Library Size: %v\n", s["librarySize"])

	if queue, ok := s["queue"].([]any); ok {
		fmt.Printf("Queue Size: %d\n", len(queue))
	}

	if cur, ok := s["currentSong"].(map[string]any); ok {
		fmt.Println("\nCurrently Loaded:")
		fmt.Printf("  Title: %v\n", cur["title"])
		fmt.Printf("  Artist: %v\n", cur["artist"])
		fmt.Printf("  Duration: %v seconds\n", cur["duration"])
	}
}

func listQueue() {
	resp, err := doRequest("GET", "/api/v1/queue", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	items, _ := resp["queue"].([]any)
	fmt.Printf("Queue (%d items):\n", len(items))
	for i, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fmt.Printf("  %2d. [%v] %v - %v (requested by %v)\n",
			i+1, item["id"], item["artist"], item["title"], item["requester"])
	}
}

func listRequests() {
	resp, err := doRequest("GET", "/api/v1/requests", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	reqs, _ := resp["requests"].([]any)
	fmt.Printf("Requests (%d):\n", len(reqs))
	for _, raw := range reqs {
		r, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		song, _ := r["song"].(map[string]any)
		fmt.Printf("  [%v] %-8v %v - %v (from %v)\n",
			r["id"], r["status"], song["artist"], song["title"], r["requesterName"])
	}
}

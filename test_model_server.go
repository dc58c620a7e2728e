package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/deedcao/Audio-to-text/internal/audio"
)

// Fake generateContent endpoint for local testing. Point the service at
// http://localhost:9000 to transcribe without spending real quota.

type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text       string `json:"text,omitempty"`
			InlineData *struct {
				MIMEType string `json:"mime_type"`
				Data     string `json:"data"`
			} `json:"inline_data,omitempty"`
		} `json:"parts"`
	} `json:"contents"`
}

type responsePart struct {
	Text string `json:"text"`
}

type responseContent struct {
	Parts []responsePart `json:"parts"`
}

type responseCandidate struct {
	Content responseContent `json:"content"`
}

type generateResponse struct {
	Candidates []responseCandidate `json:"candidates"`
}

var (
	forceStatus = flag.Int("status", 0, "Respond to every request with this HTTP status (0 = succeed)")
	quotaBody   = flag.Bool("quota", false, "Respond with 403 and a quota-exceeded message")
	delay       = flag.Duration("delay", 200*time.Millisecond, "Simulated processing time per request")
)

func generateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading body", http.StatusBadRequest)
		return
	}

	var req generateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Error parsing JSON", http.StatusBadRequest)
		return
	}

	prompt := ""
	audioBytes := 0
	audioSeconds := 0.0
	for _, content := range req.Contents {
		for _, part := range content.Parts {
			if part.Text != "" {
				prompt = part.Text
			}
			if part.InlineData != nil {
				raw, decErr := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if decErr != nil {
					http.Error(w, "Invalid base64 payload", http.StatusBadRequest)
					return
				}
				samples, rate, wavErr := audio.DecodeWAV(raw)
				if wavErr != nil {
					http.Error(w, "Invalid WAV payload: "+wavErr.Error(), http.StatusBadRequest)
					return
				}
				audioBytes = len(raw)
				audioSeconds = float64(len(samples)) / float64(rate)
			}
		}
	}

	log.Printf("🎤 MODEL REQUEST RECEIVED:")
	log.Printf("  Path: %s", r.URL.Path)
	log.Printf("  API Key Present: %v", r.Header.Get("X-Goog-Api-Key") != "")
	log.Printf("  Prompt: %.80s", prompt)
	log.Printf("  Audio: %d bytes, %.1f seconds", audioBytes, audioSeconds)

	time.Sleep(*delay)

	if *quotaBody {
		log.Printf("⛔ Responding with quota error")
		http.Error(w, `{"error": {"message": "quota exceeded for this project"}}`, http.StatusForbidden)
		return
	}
	if *forceStatus != 0 {
		log.Printf("⛔ Responding with forced status %d", *forceStatus)
		http.Error(w, `{"error": {"message": "forced test failure"}}`, *forceStatus)
		return
	}

	text := fmt.Sprintf("This is a canned test transcription of a %.1f second audio segment.", audioSeconds)
	switch {
	case strings.Contains(strings.ToLower(prompt), "translate"):
		text = "This is a canned test translation."
	case strings.Contains(strings.ToLower(prompt), "summar"):
		text = "This is a canned test summary."
	}

	resp := generateResponse{
		Candidates: []responseCandidate{
			{Content: responseContent{Parts: []responsePart{{Text: text}}}},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)

	log.Printf("✅ MODEL RESPONSE SENT: '%s'", text)
	log.Println("---")
}

func main() {
	flag.Parse()

	http.HandleFunc("/v1beta/models/", generateHandler)

	port := ":9000"
	log.Printf("🚀 Test Model Server starting on port %s", port)
	log.Printf("📡 Endpoint: http://localhost%s/v1beta/models/<model>:generateContent", port)
	log.Println("💡 Update your config to use endpoint: http://localhost:9000")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}

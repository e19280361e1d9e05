package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"gruenerator-be/internal/dto"
	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/internal/pkg/serverutils"
	"gruenerator-be/pkg/events"
	pkgnats "gruenerator-be/pkg/nats"
	"gruenerator-be/pkg/store"

	"github.com/fatih/color"
)

// Terminal client for the interactive and chat endpoints. With -tail it
// prints lifecycle events from the NATS stream instead.
func main() {
	baseURL := flag.String("url", "http://localhost:3000/api", "API base URL")
	userID := flag.String("user", "sim-user", "user id sent with every request")
	mode := flag.String("mode", "interactive", "interactive or chat")
	requestType := flag.String("type", "antrag", "interactive request type")
	tail := flag.String("tail", "", "NATS URL; tail lifecycle events instead of sending requests")
	flag.Parse()

	if *tail != "" {
		if err := tailEvents(*tail); err != nil {
			color.Red("Tail failed: %v", err)
			os.Exit(1)
		}
		return
	}

	c := &client{baseURL: *baseURL, userID: *userID, http: &http.Client{Timeout: 5 * time.Minute}}
	in := bufio.NewScanner(os.Stdin)

	var err error
	switch *mode {
	case "interactive":
		err = c.runInteractive(in, *requestType)
	case "chat":
		err = c.runChat(in)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
}

type client struct {
	baseURL string
	userID  string
	http    *http.Client
}

func (c *client) post(path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}

func prompt(in *bufio.Scanner, label string) string {
	color.Yellow(label)
	fmt.Print("> ")
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

func (c *client) runInteractive(in *bufio.Scanner, requestType string) error {
	color.Cyan("Interactive generation (%s)", requestType)
	thema := prompt(in, "Thema:")
	details := prompt(in, "Details:")

	var initResp serverutils.BaseResponse[dto.InitiateResponse]
	err := c.post("/interactive/v1/initiate", dto.InitiateRequest{
		UserId:      c.userID,
		Thema:       thema,
		Details:     details,
		RequestType: requestType,
		Locale:      "de",
	}, &initResp)
	if err != nil {
		return err
	}

	res := initResp.Data
	sessionID := res.SessionId
	questions := res.Questions
	status := res.Status
	final, genErr := res.FinalResult, res.Error

	for round := 1; len(questions) > 0 && status != "error"; round++ {
		color.Cyan("\nRound %d, session %s", round, sessionID)
		answers := askQuestions(in, questions)

		var contResp serverutils.BaseResponse[dto.ContinueResponse]
		err := c.post("/interactive/v1/continue", dto.ContinueRequest{
			UserId:    c.userID,
			SessionId: sessionID,
			Answers:   answers,
		}, &contResp)
		if err != nil {
			return err
		}
		questions = contResp.Data.Questions
		status = contResp.Data.Status
		final, genErr = contResp.Data.FinalResult, contResp.Data.Error
	}

	if genErr != "" {
		color.Red("\nGeneration failed: %s", genErr)
		return nil
	}
	color.Green("\nResult:")
	fmt.Println(final)
	return nil
}

func askQuestions(in *bufio.Scanner, questions []store.Question) map[string]interface{} {
	answers := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		color.White("\n%s", q.Text)
		for i, opt := range q.Options {
			emoji := ""
			if i < len(q.OptionEmojis) {
				emoji = q.OptionEmojis[i] + " "
			}
			fmt.Printf("  %d) %s%s\n", i+1, emoji, opt)
		}
		raw := prompt(in, "Antwort (Nummer oder Freitext):")

		var picked []string
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			var idx int
			if _, err := fmt.Sscanf(part, "%d", &idx); err == nil && idx >= 1 && idx <= len(q.Options) {
				picked = append(picked, q.Options[idx-1])
			} else if part != "" {
				picked = append(picked, part)
			}
		}
		switch {
		case len(picked) == 0:
		case q.AllowMultiSelect:
			list := make([]interface{}, len(picked))
			for i, p := range picked {
				list[i] = p
			}
			answers[q.ID] = list
		default:
			answers[q.ID] = picked[0]
		}
	}
	return answers
}

func (c *client) runChat(in *bufio.Scanner) error {
	color.Cyan("Chat (empty line quits, /agent:<name> or /interactive to force a mode)")
	var history []dto.ChatHistoryItem
	for {
		msg := prompt(in, "\nDu:")
		if msg == "" {
			return nil
		}

		var resp serverutils.BaseResponse[dto.ChatResponse]
		if err := c.post("/chat/v1/message", dto.ChatRequest{
			UserId:  c.userID,
			Message: msg,
			History: history,
		}, &resp); err != nil {
			color.Red("%v", err)
			continue
		}

		reply := describeChat(resp.Data)
		color.Green("[%s]", resp.Data.Mode)
		fmt.Println(reply)
		history = append(history,
			dto.ChatHistoryItem{Role: "user", Content: msg},
			dto.ChatHistoryItem{Role: "assistant", Content: reply},
		)
	}
}

func describeChat(r dto.ChatResponse) string {
	switch {
	case r.Result != nil && r.Result.Result != nil:
		return r.Result.Result.Content
	case r.Result != nil:
		return "Fehler: " + r.Result.Error
	case r.Dispatch != nil:
		var sb strings.Builder
		for _, res := range r.Dispatch.Results {
			fmt.Fprintf(&sb, "--- %s ---\n", res.Agent)
			if res.Result != nil {
				sb.WriteString(res.Result.Content)
			} else {
				sb.WriteString("Fehler: " + res.Error)
			}
			sb.WriteString("\n")
		}
		return sb.String()
	case r.Interactive != nil:
		return fmt.Sprintf("Interaktive Sitzung %s gestartet (%d Fragen)", r.Interactive.SessionId, len(r.Interactive.Questions))
	}
	return ""
}

func tailEvents(url string) error {
	sub, err := pkgnats.NewSubscriber(url, logger.NewNopLogger())
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	durable := fmt.Sprintf("simulation-tail-%d", time.Now().Unix())
	err = sub.Subscribe(ctx, ">", durable, func(_ context.Context, e events.GenerationEvent) error {
		line := fmt.Sprintf("%s %-28s user=%s session=%s kind=%s",
			e.At.Format(time.TimeOnly), e.Type, e.UserID, e.SessionID, e.Kind)
		switch e.Type {
		case events.GenerationFailed:
			color.Red("%s", line)
		case events.GenerationCompleted:
			color.Green("%s", line)
		default:
			color.White("%s", line)
		}
		return nil
	})
	if err != nil {
		return err
	}

	color.Cyan("Tailing %s (Ctrl+C to stop)", pkgnats.Subject(">"))
	<-ctx.Done()
	return nil
}

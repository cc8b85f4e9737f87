package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

// Hammers the API with direct-conversation pairs: each pair ensures a
// conversation, opens two sockets, joins the room, and trades messages.
// Tokens are minted locally with the server's JWT secret, so point this
// at a dev instance only.

var (
	baseURL   = flag.String("base", "http://localhost:8080", "API base URL")
	wsURL     = flag.String("ws", "ws://localhost:8080/ws", "websocket URL")
	jwtSecret = flag.String("secret", "dev-secret", "server JWT secret")
	issuer    = flag.String("issuer", "chatwire", "JWT issuer")
	pairs     = flag.Int("pairs", 50, "concurrent conversation pairs")
	msgCount  = flag.Int("messages", 20, "messages per user")
)

type conversationResponse struct {
	ID string `json:"id"`
}

type messageFrame struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}

func main() {
	flag.Parse()
	log.Printf("starting load test: %d users, %d messages each", *pairs*2, *msgCount)

	var wg sync.WaitGroup
	for i := 0; i < *pairs; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}
	wg.Wait()

	log.Println("load test complete")
}

func runPair(pairID int) {
	userA := fmt.Sprintf("load_%d_a", pairID)
	userB := fmt.Sprintf("load_%d_b", pairID)
	tokenA := mintToken(userA)
	tokenB := mintToken(userB)

	syncProfile(tokenA, userA)
	syncProfile(tokenB, userB)

	convID := ensureConversation(tokenA, userB)
	if convID == "" {
		return
	}

	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go chatSession(&wsWg, tokenA, convID, userA)
	go chatSession(&wsWg, tokenB, convID, userB)
	wsWg.Wait()
}

func mintToken(userID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"sid": "loadtest",
		"iss": *issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(*jwtSecret))
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	return signed
}

func syncProfile(token, userID string) {
	body := map[string]string{"displayName": "Load " + userID}
	resp, err := postJSON(token, "/api/users/sync", body)
	if err != nil {
		log.Printf("profile sync failed [%s]: %v", userID, err)
		return
	}
	resp.Body.Close()
}

func ensureConversation(token, targetUserID string) string {
	resp, err := postJSON(token, "/api/conversations", map[string]string{"targetUserId": targetUserID})
	if err != nil {
		log.Printf("ensure conversation failed: %v", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		log.Printf("ensure conversation: unexpected status %d", resp.StatusCode)
		return ""
	}

	var data conversationResponse
	json.NewDecoder(resp.Body).Decode(&data)
	return data.ID
}

func chatSession(wg *sync.WaitGroup, token, convID, user string) {
	defer wg.Done()

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s?token=%s", *wsURL, token), nil)
	if err != nil {
		log.Printf("ws connect failed [%s]: %v", user, err)
		return
	}
	defer conn.Close()

	join := map[string]string{"event": "conversation:join", "conversationId": convID}
	if err := conn.WriteJSON(join); err != nil {
		log.Printf("join failed [%s]: %v", user, err)
		return
	}

	// Drain inbound frames so the server never sees us as a slow consumer.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < *msgCount; i++ {
		frame := messageFrame{
			ConversationID: convID,
			Text:           fmt.Sprintf("load test message %d from %s", i, user),
		}
		resp, err := postJSON(token, "/api/messages", frame)
		if err != nil {
			log.Printf("send failed [%s]: %v", user, err)
			break
		}
		resp.Body.Close()
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("%s finished sending %d messages", user, *msgCount)
}

func postJSON(token, endpoint string, data any) (*http.Response, error) {
	payload, _ := json.Marshal(data)
	req, err := http.NewRequest(http.MethodPost, *baseURL+endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

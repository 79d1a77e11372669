package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client is a minimal REST client for the chat platform: direct messages,
// channel posts and user lookups. Everything the tracker needs to deliver
// notifications, nothing more.
type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
}

func NewClient(baseURL, botToken string) *Client {
	return &Client{
		baseURL:    baseURL,
		botToken:   botToken,
		httpClient: &http.Client{},
	}
}

// Post represents a channel message.
type Post struct {
	ID        string `json:"id,omitempty"`
	ChannelID string `json:"channel_id"`
	Message   string `json:"message"`
	Props     Props  `json:"props,omitempty"`
}

// Props holds post properties including attachments.
type Props struct {
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a formatted message block.
type Attachment struct {
	Title  string  `json:"title,omitempty"`
	Text   string  `json:"text,omitempty"`
	Color  string  `json:"color,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

// Field is a key-value pair rendered inside an attachment.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// User holds basic user information.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CreatePost creates a new post in a channel.
func (c *Client) CreatePost(post *Post) (*Post, error) {
	var result Post
	if err := c.doJSON("POST", "/api/v4/posts", post, &result); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &result, nil
}

// SendDM sends a direct message to a user, creating the DM channel if
// needed.
func (c *Client) SendDM(userID, message string, props Props) error {
	var channel struct {
		ID string `json:"id"`
	}
	payload := []string{userID, "me"}
	if err := c.doJSON("POST", "/api/v4/channels/direct", payload, &channel); err != nil {
		return fmt.Errorf("create dm channel: %w", err)
	}

	_, err := c.CreatePost(&Post{
		ChannelID: channel.ID,
		Message:   message,
		Props:     props,
	})
	return err
}

// GetUser retrieves user info by ID.
func (c *Client) GetUser(userID string) (*User, error) {
	var user User
	if err := c.doJSON("GET", "/api/v4/users/"+userID, nil, &user); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// ResolveUsername looks up the platform user ID for a display username.
func (c *Client) ResolveUsername(username string) (string, error) {
	var user User
	if err := c.doJSON("GET", "/api/v4/users/username/"+username, nil, &user); err != nil {
		return "", fmt.Errorf("resolve username: %w", err)
	}
	return user.ID, nil
}

func (c *Client) doJSON(method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cemse-quiz/internal/domain"
)

// Client posts finished attempts to the submission endpoint of a quiz server.
type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Submit sends POST {base}/api/quizzes/{quizId}/submissions. Any non-2xx reply is an error.
func (c *Client) Submit(ctx context.Context, sub domain.Submission) (domain.Receipt, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("marshal submission: %w", err)
	}
	endpoint := fmt.Sprintf("%s/api/quizzes/%s/submissions", c.base, url.PathEscape(sub.QuizID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("post submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Receipt{}, fmt.Errorf("submission rejected: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var receipt domain.Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return domain.Receipt{}, fmt.Errorf("decode receipt: %w", err)
	}
	return receipt, nil
}

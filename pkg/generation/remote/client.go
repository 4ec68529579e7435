// Package remote calls the external question/answer generation service
// over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"qnagen-be/pkg/generation"
	"qnagen-be/pkg/qgen"
)

// OwnerHeader carries the workspace id so the service scopes uploads per tab.
const OwnerHeader = "X-Session-Id"

const maxErrorBody = 4 << 10

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

var _ generation.Backend = &Client{}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Text         string `json:"text,omitempty"`
	Chapter      string `json:"chapter,omitempty"`
	NumQuestions int    `json:"numQuestions"`
	MCQ          bool   `json:"mcq"`
	ShortAnswer  bool   `json:"shortAnswer"`
	LongAnswer   bool   `json:"longAnswer"`
}

type questionsResponse struct {
	Chapter   string   `json:"chapter,omitempty"`
	Questions []string `json:"questions"`
}

type questionRequest struct {
	Question string `json:"question"`
}

type answerResponse struct {
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer"`
}

type exportRequest struct {
	Questions []qgen.ExportQuestion `json:"questions"`
}

func (c *Client) UploadSyllabus(ctx context.Context, owner string, file qgen.Attachment) error {
	return c.postFile(ctx, "/api/upload-syllabus", owner, file, nil)
}

func (c *Client) GenerateFromText(ctx context.Context, owner string, req qgen.TextRequest) ([]string, error) {
	var out questionsResponse
	err := c.postJSON(ctx, "/api/nlp-generate-questions", owner, generateRequest{
		Text:         req.Text,
		NumQuestions: req.DesiredCount,
		MCQ:          req.Types.MultipleChoice,
		ShortAnswer:  req.Types.ShortAnswer,
		LongAnswer:   req.Types.LongAnswer,
	}, &out)
	return out.Questions, err
}

func (c *Client) GenerateForTopic(ctx context.Context, owner string, req qgen.TopicRequest) ([]string, error) {
	var out questionsResponse
	err := c.postJSON(ctx, "/api/nlp-generate-questions-by-chapter", owner, generateRequest{
		Chapter:      req.Topic,
		NumQuestions: req.DesiredCount,
		MCQ:          req.Types.MultipleChoice,
		ShortAnswer:  req.Types.ShortAnswer,
		LongAnswer:   req.Types.LongAnswer,
	}, &out)
	return out.Questions, err
}

func (c *Client) ExtractQuestions(ctx context.Context, owner string, paper qgen.Attachment) ([]string, error) {
	var out questionsResponse
	err := c.postFile(ctx, "/api/upload-question-paper", owner, paper, &out)
	return out.Questions, err
}

func (c *Client) GenerateAnswer(ctx context.Context, owner string, question string) (string, error) {
	var out answerResponse
	err := c.postJSON(ctx, "/api/generate-answer", owner, questionRequest{Question: question}, &out)
	return out.Answer, err
}

func (c *Client) AnswerFromSyllabus(ctx context.Context, owner string, question string) (string, error) {
	var out answerResponse
	err := c.postJSON(ctx, "/api/nlp-generate-answer-to-question", owner, questionRequest{Question: question}, &out)
	return out.Answer, err
}

func (c *Client) Export(ctx context.Context, questions []qgen.ExportQuestion) (*qgen.Artifact, error) {
	body, err := json.Marshal(exportRequest{Questions: questions})
	if err != nil {
		return nil, fmt.Errorf("marshal export request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/export-pdf", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export request failed: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return &qgen.Artifact{
		FileName:    fileName(resp.Header.Get("Content-Disposition"), "questions.pdf"),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path, owner string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, owner, out)
}

func (c *Client) postFile(ctx context.Context, path, owner string, file qgen.Attachment, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", file.FileName)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, owner, out)
}

func (c *Client) do(req *http.Request, owner string, out interface{}) error {
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &generation.StatusError{Code: resp.StatusCode, Body: detail(body)}
}

// detail unwraps the {"detail": "..."} body the service uses for errors.
func detail(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil && e.Detail != "" {
		return e.Detail
	}
	return string(body)
}

func fileName(disposition, fallback string) string {
	if disposition == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] == "" {
		return fallback
	}
	return params["filename"]
}

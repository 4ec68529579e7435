package dto

import (
	"time"

	"qnagen-be/pkg/qgen"

	"github.com/google/uuid"
)

// --- Requests ---

type SetModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=free_text syllabus_topics question_paper question_list"`
}

// SetTypesRequest accepts either the full flag set or a single "type".
type SetTypesRequest struct {
	Type           string `json:"type" validate:"omitempty,oneof=mcq short_answer long_answer"`
	MultipleChoice *bool  `json:"mcq"`
	ShortAnswer    *bool  `json:"short_answer"`
	LongAnswer     *bool  `json:"long_answer"`
}

type SetFreeTextRequest struct {
	Text         string `json:"text"`
	DesiredCount int    `json:"desired_count" validate:"min=0"`
}

type TopicRequest struct {
	Name         *string  `json:"name"`
	DesiredCount *int     `json:"desired_count" validate:"omitempty,min=0"`
	Weight       *float64 `json:"weight"`
	ClearWeight  bool     `json:"clear_weight"`
	Selected     *bool    `json:"selected"`
}

type ListQuestionRequest struct {
	Text     *string `json:"text"`
	Selected *bool   `json:"selected"`
}

// --- Responses ---

type AttachmentResponse struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size"`
}

type TopicResponse struct {
	Id           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	DesiredCount int       `json:"desired_count"`
	Weight       *float64  `json:"weight"`
	Selected     bool      `json:"selected"`
}

type ListQuestionResponse struct {
	Id       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Selected bool      `json:"selected"`
}

type FormResponse struct {
	Types    qgen.TypeFlags `json:"types"`
	FreeText struct {
		Text         string `json:"text"`
		DesiredCount int    `json:"desired_count"`
	} `json:"free_text"`
	Syllabus struct {
		File   *AttachmentResponse `json:"file"`
		Topics []TopicResponse     `json:"topics"`
	} `json:"syllabus_topics"`
	QuestionPaper struct {
		File *AttachmentResponse `json:"file"`
	} `json:"question_paper"`
	QuestionList struct {
		File      *AttachmentResponse    `json:"file"`
		Questions []ListQuestionResponse `json:"questions"`
	} `json:"question_list"`
}

type QuestionItemResponse struct {
	Id             uuid.UUID        `json:"id"`
	Text           string           `json:"text"`
	Weight         *float64         `json:"weight"`
	Topic          string           `json:"topic,omitempty"`
	MultipleChoice bool             `json:"multiple_choice"`
	Answer         qgen.AnswerState `json:"answer"`
}

type SessionResponse struct {
	Id                    string                 `json:"id"`
	Mode                  qgen.Mode              `json:"mode"`
	Form                  FormResponse           `json:"form"`
	Items                 []QuestionItemResponse `json:"items"`
	Authenticated         bool                   `json:"authenticated"`
	LoginPrompt           bool                   `json:"login_prompt"`
	Credits               *int                   `json:"credits"`
	SubscriptionExpiresAt *time.Time             `json:"subscription_expires_at"`
	SubscriptionActive    bool                   `json:"subscription_active"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

type AnswerResponse struct {
	QuestionId uuid.UUID        `json:"question_id"`
	Answer     qgen.AnswerState `json:"answer"`
}

// NewSessionResponse renders a workspace view. Attachments are reported by
// name and size only.
func NewSessionResponse(v qgen.View, now time.Time) *SessionResponse {
	res := &SessionResponse{
		Id:            v.ID,
		Mode:          v.Mode,
		Form:          newFormResponse(v.Form),
		Items:         NewItemResponses(v.Items),
		Authenticated: v.Authenticated,
		LoginPrompt:   v.LoginPrompt,
		UpdatedAt:     v.UpdatedAt,
	}
	if v.User != nil {
		credits := v.User.CreditBalance
		res.Credits = &credits
		res.SubscriptionExpiresAt = v.User.SubscriptionExpiry
		res.SubscriptionActive = v.User.SubscriptionActive(now)
	}
	return res
}

func NewItemResponses(items []qgen.QuestionItem) []QuestionItemResponse {
	out := make([]QuestionItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, QuestionItemResponse{
			Id:             it.ID,
			Text:           it.Text,
			Weight:         it.Weight,
			Topic:          it.Topic,
			MultipleChoice: it.MultipleChoice(),
			Answer:         it.Answer,
		})
	}
	return out
}

func newAttachmentResponse(a *qgen.Attachment) *AttachmentResponse {
	if a.Empty() {
		return nil
	}
	return &AttachmentResponse{FileName: a.FileName, ContentType: a.ContentType, Size: len(a.Data)}
}

func newFormResponse(f qgen.FormState) FormResponse {
	var res FormResponse
	res.Types = f.Types
	res.FreeText.Text = f.FreeText.Text
	res.FreeText.DesiredCount = f.FreeText.DesiredCount

	res.Syllabus.File = newAttachmentResponse(f.Syllabus.Syllabus)
	res.Syllabus.Topics = make([]TopicResponse, 0, len(f.Syllabus.Topics))
	for _, t := range f.Syllabus.Topics {
		res.Syllabus.Topics = append(res.Syllabus.Topics, NewTopicResponse(t))
	}

	res.QuestionPaper.File = newAttachmentResponse(f.QuestionPaper.Paper)

	res.QuestionList.File = newAttachmentResponse(f.QuestionList.Source)
	res.QuestionList.Questions = make([]ListQuestionResponse, 0, len(f.QuestionList.Questions))
	for _, q := range f.QuestionList.Questions {
		res.QuestionList.Questions = append(res.QuestionList.Questions, NewListQuestionResponse(q))
	}
	return res
}

func NewTopicResponse(t qgen.TopicSpec) TopicResponse {
	return TopicResponse{Id: t.ID, Name: t.Name, DesiredCount: t.DesiredCount, Weight: t.Weight, Selected: t.Selected}
}

func NewListQuestionResponse(q qgen.QuestionListEntry) ListQuestionResponse {
	return ListQuestionResponse{Id: q.ID, Text: q.Text, Selected: q.Selected}
}

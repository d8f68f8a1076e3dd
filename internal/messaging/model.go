package messaging

import "time"

// Feed entry types.
const (
	TypeText     = "text"
	TypeQuestion = "question"
	TypeResponse = "response"
)

// MaxLength bounds message, question and response text in characters.
const MaxLength = 2000

// Message is one entry of a ride's member feed.
type Message struct {
	ID          string    `json:"message_id"`
	RideID      string    `json:"ride_id"`
	SenderEmail string    `json:"sender_email"`
	Content     string    `json:"content"`
	Type        string    `json:"message_type"`
	QuestionID  string    `json:"question_id,omitempty"`
	CreatedAt   time.Time `json:"timestamp"`
}

// MessageView is a feed entry with the sender's current display details.
type MessageView struct {
	Message
	SenderName           string `json:"sender_name"`
	SenderProfilePicture string `json:"sender_profile_picture,omitempty"`
}

// Feed is the response of GET /ride/{id}/messages.
type Feed struct {
	RideID           string        `json:"ride_id"`
	Messages         []MessageView `json:"messages"`
	ParticipantCount int           `json:"participant_count"`
}

// Question is asked by a non-member about a ride.
type Question struct {
	ID         string    `json:"question_id"`
	RideID     string    `json:"ride_id"`
	AskerEmail string    `json:"asker_email"`
	Question   string    `json:"question"`
	IsAnswered bool      `json:"is_answered"`
	CreatedAt  time.Time `json:"timestamp"`
}

// QuestionView decorates a question with its ride and response count.
type QuestionView struct {
	Question
	AskerName       string `json:"asker_name"`
	ResponseCount   int    `json:"response_count"`
	RideOrigin      string `json:"ride_origin"`
	RideDestination string `json:"ride_destination"`
	DepartureDate   string `json:"departure_date,omitempty"`
}

// AskedQuestion is a caller's own question with the current state of its ride.
type AskedQuestion struct {
	QuestionView
	RideDeleted       bool     `json:"ride_deleted"`
	RideStatus        string   `json:"ride_status,omitempty"`
	RideCommunities   []string `json:"ride_communities,omitempty"`
	UserCanAccess     bool     `json:"user_can_access"`
	UnavailableReason string   `json:"unavailable_reason,omitempty"`
}

// Response is a member's private answer to a question, addressed to the asker.
type Response struct {
	ID             string    `json:"response_id"`
	QuestionID     string    `json:"question_id"`
	RideID         string    `json:"ride_id"`
	ResponderEmail string    `json:"responder_email"`
	AskerEmail     string    `json:"asker_email"`
	Response       string    `json:"response"`
	CreatedAt      time.Time `json:"timestamp"`
}

// ResponseView adds the responder's display name.
type ResponseView struct {
	Response
	ResponderName string `json:"responder_name"`
}

// ChatInfo drives the message button of a ride card.
type ChatInfo struct {
	IsMember        bool `json:"is_member"`
	MessageCount    int  `json:"message_count"`
	QuestionCount   int  `json:"question_count"`
	CanSendMessages bool `json:"can_send_messages"`
	CanAskQuestions bool `json:"can_ask_questions"`
}

// FeedStats summarises a ride's feed.
type FeedStats struct {
	Count  int
	LastAt *time.Time
}

// RideChat is one row of GET /my-ride-chats.
type RideChat struct {
	RideID          string     `json:"ride_id"`
	RideOrigin      string     `json:"ride_origin"`
	RideDestination string     `json:"ride_destination"`
	DepartureDate   string     `json:"departure_date"`
	MessageCount    int        `json:"message_count"`
	LastMessageTime *time.Time `json:"last_message_time"`
}

// SendMessageRequest is the body for POST /ride/{id}/message.
type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// AskRequest is the body for POST /ride/{id}/question.
type AskRequest struct {
	Question string `json:"question" validate:"required"`
}

// RespondRequest is the body for POST /question/{id}/respond.
type RespondRequest struct {
	Response string `json:"response" validate:"required"`
}

// Receipt acknowledges a write.
type Receipt struct {
	Message    string `json:"message"`
	MessageID  string `json:"message_id,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
	ResponseID string `json:"response_id,omitempty"`
}

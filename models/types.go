package models

import "time"

// Voting security modes
const (
	SecurityNone              = "none"
	SecurityIPAddress         = "ip_address"
	SecurityBrowserSession    = "browser_session"
	SecurityDeviceFingerprint = "device_fingerprint"
)

// Live update message types
const (
	MessageVoteUpdate = "vote_update"
	MessagePing       = "ping"
)

// AllRoom is the live-update room that receives every poll's updates.
const AllRoom = "all"

// Request types

type OptionInput struct {
	Text string `json:"text"`
}

type CreatePollRequest struct {
	Question        string        `json:"question"`
	Options         []OptionInput `json:"options"`
	VotingSecurity  string        `json:"voting_security"`
	DurationMinutes int           `json:"duration_minutes"`
}

type SubmitVoteRequest struct {
	OptionID        string `json:"option_id"`
	SessionID       string `json:"session_id,omitempty"`
	DeviceSessionID string `json:"device_session_id,omitempty"`
}

// Response types

type CreatePollResponse struct {
	PollWithOptions
	AdminKey string `json:"admin_key"`
}

type VoteResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	PollID   string `json:"poll_id"`
	OptionID string `json:"option_id"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Domain types

type Poll struct {
	ID             string     `json:"id"`
	Question       string     `json:"question"`
	VotingSecurity string     `json:"voting_security"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// ExpiredAt reports whether the poll no longer accepts votes at now.
// Polls without an expiry never expire.
func (p *Poll) ExpiredAt(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

type Option struct {
	ID        string `json:"id"`
	PollID    string `json:"-"`
	Text      string `json:"text"`
	Position  int    `json:"-"`
	VoteCount int64  `json:"vote_count"`
}

type PollWithOptions struct {
	Poll
	Options []Option `json:"options"`
}

type PollSummary struct {
	ID             string     `json:"id"`
	Question       string     `json:"question"`
	VotingSecurity string     `json:"voting_security"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	OptionCount    int        `json:"option_count"`
	TotalVotes     int64      `json:"total_votes"`
}

type Vote struct {
	ID        string    `json:"id"`
	PollID    string    `json:"poll_id"`
	OptionID  string    `json:"option_id"`
	VoterHash string    `json:"-"` // Never expose in JSON
	CreatedAt time.Time `json:"created_at"`
}

// Results types

type OptionResult struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	VoteCount int64  `json:"vote_count"`
}

type PollResults struct {
	PollID     string         `json:"poll_id"`
	Question   string         `json:"question"`
	TotalVotes int64          `json:"total_votes"`
	Options    []OptionResult `json:"options"`
}

// Live update messages

type VoteUpdateMessage struct {
	Type string      `json:"type"`
	Data PollResults `json:"data"`
}

type PingMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Room    string `json:"room"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

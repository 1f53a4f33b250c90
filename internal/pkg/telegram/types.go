package telegram

// User is the Bot API user object, reduced to the fields we read.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type ChatMember struct {
	User   User   `json:"user"`
	Status string `json:"status"`
}

// Update is an incoming Bot API webhook update. Only member movement is
// relevant for group reconciliation.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID      int64  `json:"message_id"`
	From           *User  `json:"from"`
	Chat           Chat   `json:"chat"`
	Text           string `json:"text"`
	NewChatMembers []User `json:"new_chat_members"`
	LeftChatMember *User  `json:"left_chat_member"`
}

// WebhookStatus mirrors getWebhookInfo.
type WebhookStatus struct {
	URL                  string `json:"url"`
	HasCustomCertificate bool   `json:"has_custom_certificate"`
	PendingUpdateCount   int    `json:"pending_update_count"`
	LastErrorDate        int64  `json:"last_error_date"`
	LastErrorMessage     string `json:"last_error_message"`
}

// AddResult reports an invite attempt. Gateway problems land in Err instead
// of an error return so batch callers can record and continue.
type AddResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	InviteLink string `json:"invite_link,omitempty"`
	Err        string `json:"error,omitempty"`
}

type RemoveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Err     string `json:"error,omitempty"`
}

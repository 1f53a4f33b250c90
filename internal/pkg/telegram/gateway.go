package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AlunoSync/AlunoSync/internal/pkg/env"
)

const defaultTelegramAPIBaseURL = "https://api.telegram.org"

// inviteLinkTTL and inviteMemberLimit make every generated link personal:
// one use, dead after a week.
const (
	inviteLinkTTL     = 7 * 24 * time.Hour
	inviteMemberLimit = 1
)

// Gateway talks to the Bot API for a single managed group chat.
type Gateway struct {
	BotToken string
	ChatID   string

	APIBaseURL string
	HTTPClient *http.Client
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func NewGatewayFromEnv() *Gateway {
	return &Gateway{
		BotToken:   strings.TrimSpace(env.GetEnv("TELEGRAM_BOT_TOKEN", "")),
		ChatID:     strings.TrimSpace(env.GetEnv("TELEGRAM_CHAT_ID", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("TELEGRAM_API_BASE_URL", defaultTelegramAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (g *Gateway) configured() error {
	if g.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not configured")
	}
	if g.ChatID == "" {
		return errors.New("TELEGRAM_CHAT_ID is not configured")
	}
	return nil
}

func (g *Gateway) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	if err := g.configured(); err != nil {
		return err
	}

	endpoint := strings.TrimRight(g.APIBaseURL, "/") + "/bot" + g.BotToken + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var wrapped apiResponse
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return fmt.Errorf("telegram %s: invalid response (status=%d): %w", method, resp.StatusCode, err)
	}
	if !wrapped.OK {
		return fmt.Errorf("telegram %s failed: code=%d description=%s", method, wrapped.ErrorCode, wrapped.Description)
	}
	if out != nil && len(wrapped.Result) > 0 {
		return json.Unmarshal(wrapped.Result, out)
	}
	return nil
}

// CreateInviteLink generates a single-use invite link that expires in 7 days.
func (g *Gateway) CreateInviteLink(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("chat_id", g.ChatID)
	params.Set("expire_date", strconv.FormatInt(time.Now().Add(inviteLinkTTL).Unix(), 10))
	params.Set("member_limit", strconv.Itoa(inviteMemberLimit))

	var result struct {
		InviteLink string `json:"invite_link"`
	}
	if err := g.call(ctx, "createChatInviteLink", params, &result); err != nil {
		return "", err
	}
	if result.InviteLink == "" {
		return "", errors.New("createChatInviteLink returned empty invite_link")
	}
	return result.InviteLink, nil
}

// AddStudentToGroup generates a personal invite link for the student. The
// student joins on their own; the bot cannot add users directly.
func (g *Gateway) AddStudentToGroup(ctx context.Context, name, email string) AddResult {
	if err := g.configured(); err != nil {
		return AddResult{Success: false, Message: "Telegram is not configured", Err: err.Error()}
	}

	link, err := g.CreateInviteLink(ctx)
	if err != nil {
		return AddResult{Success: false, Message: "Failed to generate invite link", Err: err.Error()}
	}
	return AddResult{
		Success:    true,
		Message:    fmt.Sprintf("Invite link generated for %s (%s)", name, email),
		InviteLink: link,
	}
}

// notMemberDescriptions covers the Bot API's ways of saying a kick target is
// already gone. Those removals count as success.
var notMemberDescriptions = []string{
	"user is not a member",
	"user not found",
	"user_not_participant",
	"participant_id_invalid",
}

func isNotMemberError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, d := range notMemberDescriptions {
		if strings.Contains(msg, d) {
			return true
		}
	}
	return false
}

// RemoveStudentFromGroup bans and immediately unbans the user, so a future
// repurchase can bring them back with a fresh invite.
func (g *Gateway) RemoveStudentFromGroup(ctx context.Context, telegramUserID int64, reason string) RemoveResult {
	if err := g.configured(); err != nil {
		return RemoveResult{Success: false, Message: "Telegram is not configured", Err: err.Error()}
	}
	if reason == "" {
		reason = "Subscription expired"
	}

	params := url.Values{}
	params.Set("chat_id", g.ChatID)
	params.Set("user_id", strconv.FormatInt(telegramUserID, 10))

	if err := g.call(ctx, "banChatMember", params, nil); err != nil {
		if isNotMemberError(err) {
			return RemoveResult{Success: true, Message: "User already absent from group. Reason: " + reason}
		}
		return RemoveResult{Success: false, Message: "Failed to remove student from group", Err: err.Error()}
	}

	if err := g.call(ctx, "unbanChatMember", params, nil); err != nil {
		// Ban went through, the user is out. Log-worthy but not a failure.
		return RemoveResult{Success: true, Message: "Student removed, unban failed: " + err.Error()}
	}

	return RemoveResult{Success: true, Message: "Student removed from group. Reason: " + reason}
}

var memberStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
	"member":        true,
	"restricted":    true,
}

// IsMember reports whether the user currently belongs to the group.
func (g *Gateway) IsMember(ctx context.Context, telegramUserID int64) (bool, error) {
	params := url.Values{}
	params.Set("chat_id", g.ChatID)
	params.Set("user_id", strconv.FormatInt(telegramUserID, 10))

	var member ChatMember
	if err := g.call(ctx, "getChatMember", params, &member); err != nil {
		if isNotMemberError(err) {
			return false, nil
		}
		return false, err
	}
	return memberStatuses[member.Status], nil
}

func (g *Gateway) ListAdmins(ctx context.Context) ([]ChatMember, error) {
	params := url.Values{}
	params.Set("chat_id", g.ChatID)

	var admins []ChatMember
	if err := g.call(ctx, "getChatAdministrators", params, &admins); err != nil {
		return nil, err
	}
	return admins, nil
}

func (g *Gateway) SendGroupMessage(ctx context.Context, text string) error {
	params := url.Values{}
	params.Set("chat_id", g.ChatID)
	params.Set("text", text)
	params.Set("parse_mode", "Markdown")
	return g.call(ctx, "sendMessage", params, nil)
}

// SendWelcomeMessage announces a new enrollment to the group with the invite
// link and its usage rules.
func (g *Gateway) SendWelcomeMessage(ctx context.Context, studentName, inviteLink, productName string) error {
	msg := fmt.Sprintf(
		"🎉 *Welcome %s!*\n\n"+
			"You have been enrolled in *%s*!\n\n"+
			"Click the link below to join our exclusive Telegram group:\n%s\n\n"+
			"⚠️ *Important:*\n"+
			"- This link is valid for 7 days\n"+
			"- This link can only be used once\n"+
			"- Keep your subscription active to maintain access",
		studentName, productName, inviteLink,
	)
	return g.SendGroupMessage(ctx, msg)
}

func (g *Gateway) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := g.call(ctx, "getMe", url.Values{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// SetWebhook points the bot at the given HTTPS endpoint.
func (g *Gateway) SetWebhook(ctx context.Context, webhookURL string) error {
	if strings.TrimSpace(webhookURL) == "" {
		return errors.New("webhook url is required")
	}
	params := url.Values{}
	params.Set("url", webhookURL)
	params.Set("allowed_updates", `["message"]`)
	return g.call(ctx, "setWebhook", params, nil)
}

func (g *Gateway) WebhookInfo(ctx context.Context) (*WebhookStatus, error) {
	var info WebhookStatus
	if err := g.call(ctx, "getWebhookInfo", url.Values{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (g *Gateway) DeleteWebhook(ctx context.Context) error {
	return g.call(ctx, "deleteWebhook", url.Values{}, nil)
}

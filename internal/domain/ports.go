package domain

import (
	"context"
	"errors"
)

var (
	ErrNotConnected    = errors.New("remote client not connected")
	ErrGuildNotFound   = errors.New("guild not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrRoleNotFound    = errors.New("role not found")
)

type Guild struct {
	ID   string
	Name string
}

type Channel struct {
	ID      string
	Name    string
	GuildID string
}

type RemoteMessage struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
}

// Topology answers lookups against the remote platform's cached guild state.
type Topology interface {
	IsConnected() bool
	GuildByNameOrID(nameOrID string) (Guild, bool)
	ChannelByNameOrID(guild Guild, nameOrID string) (Channel, bool)
}

// Messenger posts and edits remote messages.
type Messenger interface {
	PostMessage(ctx context.Context, channelID, content string) (string, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	ChannelMessages(ctx context.Context, channelID string, limit int) ([]RemoteMessage, error)
	BotUserID() string
}

type PresenceSetter interface {
	SetActivity(ctx context.Context, text string) error
}

type RoleManager interface {
	AddMemberRole(ctx context.Context, guild Guild, userID, role string) error
	RemoveMemberRole(ctx context.Context, guild Guild, userID, role string) error
}

// RemoteClient is everything the core needs from the chat platform client.
type RemoteClient interface {
	Topology
	Messenger
	PresenceSetter
	RoleManager
}

// UserDirectory lists known game accounts.
type UserDirectory interface {
	Users() []User
	OnlineUsers() []User
}

// GameServer is the game-side collaborator.
type GameServer interface {
	UserDirectory
	Currencies() []Currency
	ServerInfo() ServerInfo
}

// OutgoingMessagePort delivers a chat line to one side of the bridge.
type OutgoingMessagePort interface {
	SendMessage(ctx context.Context, platform Platform, channelID, text string) error
}

type LinkedUserRepository interface {
	SaveLinkedUser(ctx context.Context, user *LinkedUser) error
	GetLinkedUser(ctx context.Context, discordID string) (*LinkedUser, error)
	ListLinkedUsers(ctx context.Context) ([]*LinkedUser, error)
	DeleteLinkedUser(ctx context.Context, discordID string) error
}

// CurrencyTradeCount is the persisted number of trades per currency.
type CurrencyTradeCount struct {
	CurrencyID int
	Currency   string
	Count      int64
}

type WorldDataRepository interface {
	IncrementTradeCount(ctx context.Context, currencyID int, currency string) error
	ListTradeCounts(ctx context.Context) ([]CurrencyTradeCount, error)
	ResetWorldData(ctx context.Context) error
}

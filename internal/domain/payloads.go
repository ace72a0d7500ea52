package domain

import "time"

// ChatMessage is a chat line seen on either side of the bridge.
type ChatMessage struct {
	Platform  Platform  `json:"platform"`
	Guild     string    `json:"guild,omitempty"`
	GuildID   string    `json:"guild_id,omitempty"`
	Channel   string    `json:"channel"`
	ChannelID string    `json:"channel_id,omitempty"`
	AuthorID  string    `json:"author_id,omitempty"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
}

// User is a game-side account.
type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	SteamID   string    `json:"steam_id,omitempty"`
	SlgID     string    `json:"slg_id,omitempty"`
	Online    bool      `json:"online"`
	LoginTime time.Time `json:"login_time,omitempty"`
}

type Trade struct {
	Citizen    string  `json:"citizen"`
	CurrencyID int     `json:"currency_id"`
	Currency   string  `json:"currency"`
	Amount     float64 `json:"amount"`
	Store      string  `json:"store"`
	Item       string  `json:"item,omitempty"`
	Bought     bool    `json:"bought"`
}

type WorkOrder struct {
	Citizen     string `json:"citizen"`
	Item        string `json:"item"`
	ItemPlural  string `json:"item_plural,omitempty"`
	Count       int    `json:"count"`
	WorldObject string `json:"world_object"`
	Action      string `json:"action"`
}

type WorkParty struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Citizen string `json:"citizen,omitempty"`
}

type Vote struct {
	Citizen  string `json:"citizen"`
	Election string `json:"election"`
}

type Currency struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Backed  bool   `json:"backed"`
	Creator string `json:"creator,omitempty"`
}

type DemographicChange struct {
	Citizen     string `json:"citizen"`
	Demographic string `json:"demographic"`
	Entered     bool   `json:"entered"`
}

type SpecialtyChange struct {
	Citizen   string `json:"citizen"`
	Specialty string `json:"specialty"`
}

type Election struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Proposer string `json:"proposer,omitempty"`
	Winner   string `json:"winner,omitempty"`
}

// LinkedUser pairs a remote account with a game account.
type LinkedUser struct {
	DiscordID string    `json:"discord_id"`
	EcoName   string    `json:"eco_name"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ServerInfo is the game server state shown by the server info display.
type ServerInfo struct {
	Description    string        `json:"description,omitempty"`
	Address        string        `json:"address,omitempty"`
	TotalPlayers   int           `json:"total_players"`
	TimeSinceStart time.Duration `json:"time_since_start"`
	TimeLeft       time.Duration `json:"time_left"`
	MeteorHasHit   bool          `json:"meteor_has_hit"`
}

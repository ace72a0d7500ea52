package domain

type Platform string

const (
	PlatformDiscord Platform = "discord"
	PlatformEco     Platform = "eco"
)

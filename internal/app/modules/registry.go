package modules

// Registry builds every module in registration order.
func Registry(deps Deps) []Module {
	return []Module{
		NewServerInfoDisplay(deps),
		NewCurrencyDisplay(deps),
		NewEcoChatFeed(deps),
		NewDiscordChatFeed(deps),
		NewCraftingFeed(deps),
		NewTradeFeed(deps),
		NewPlayerStatusFeed(deps),
		NewElectionFeed(deps),
		NewAccountLinkRoleModule(deps),
	}
}

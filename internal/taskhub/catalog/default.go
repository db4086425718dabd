package catalog

import "github.com/SakuraBurst/taskhub/internal/taskhub/types"

var defaultCatalog = MustNew(
	types.Task{
		ID:           "1",
		Title:        "Follow us on X",
		Description:  "Follow the official account and turn on notifications.",
		Instructions: "Open the link, follow the account and submit a screenshot of your profile showing the follow.",
		Reward:       5,
		Difficulty:   types.DifficultyEasy,
		Link:         "https://x.com/taskhub",
	},
	types.Task{
		ID:           "2",
		Title:        "Join the Telegram community",
		Description:  "Become a member of the community chat.",
		Instructions: "Join the group, send a greeting and submit your Telegram username as text.",
		Reward:       5,
		Difficulty:   types.DifficultyEasy,
		Link:         "https://t.me/taskhub",
	},
	types.Task{
		ID:           "3",
		Title:        "Swap on a DEX",
		Description:  "Make a swap of any listed token on a decentralized exchange.",
		Instructions: "Swap at least 10 USD worth of one of the listed tokens and submit the transaction hash.",
		Reward:       15,
		Difficulty:   types.DifficultyMedium,
		Tokens: []types.Token{
			{Symbol: "ETH", URL: "https://etherscan.io/token/eth"},
			{Symbol: "USDC", URL: "https://etherscan.io/token/0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"},
			{Symbol: "ARB", URL: "https://arbiscan.io/token/0x912ce59144191c1204e64559fe8253a0e49e6548"},
		},
	},
	types.Task{
		ID:           "4",
		Title:        "Write a review",
		Description:  "Share your experience with the product.",
		Instructions: "Publish a review of at least 200 characters and submit the link and a screenshot.",
		Reward:       25,
		Difficulty:   types.DifficultyHard,
	},
)

// Default returns the catalog seeded at process start.
func Default() *Catalog {
	return defaultCatalog
}

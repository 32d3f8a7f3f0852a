package pattern

import "github.com/Veraticus/cashback-counter/internal/model"

// DefaultRules returns built-in rules for merchants that statements often
// leave without a merchant category code.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:            "Streaming and app stores",
			MerchantPattern: `\b(NETFLIX|SPOTIFY|DISNEY\s*PLUS|YOUTUBE\s*PREMIUM|APPLE\.COM/BILL|GOOGLE\s*\*|STEAM\s*GAMES|NINTENDO)\b`,
			IsRegex:         true,
			Category:        model.CategoryDigital,
			Priority:        90,
		},
		{
			Name:            "Online services",
			MerchantPattern: `\b(OPENAI|CHATGPT|ADOBE|DROPBOX|MICROSOFT\s*\*|AMAZON\s*WEB\s*SERVICES|AWS)\b`,
			IsRegex:         true,
			Category:        model.CategoryDigital,
			Priority:        85,
		},
		{
			Name:            "Food delivery",
			MerchantPattern: `\b(DELIVEROO|FOODPANDA|UBER\s*EATS|KEETA|MEITUAN|ELE\.ME)\b`,
			IsRegex:         true,
			Category:        model.CategoryDining,
			Priority:        80,
		},
		{
			Name:            "Restaurants and cafes",
			MerchantPattern: `\b(RESTAURANT|CAFE|COFFEE|STARBUCKS|MCDONALD'?S|KFC|PIZZA|SUSHI|RAMEN|BISTRO|BAKERY)\b`,
			IsRegex:         true,
			Category:        model.CategoryDining,
			Priority:        70,
		},
		{
			Name:            "Supermarkets",
			MerchantPattern: `\b(WELLCOME|PARKNSHOP|PARK\s*N\s*SHOP|YATA|AEON|COSTCO|WHOLE\s*FOODS|SUPERMARKET|HEMA|FAMILYMART|7-ELEVEN)\b`,
			IsRegex:         true,
			Category:        model.CategoryGrocery,
			Priority:        70,
		},
		{
			Name:            "Airlines",
			MerchantPattern: `\b(CATHAY\s*PACIFIC|HK\s*EXPRESS|JAPAN\s*AIRLINES|ANA|UNITED\s*AIRLINES|AIR\s*CHINA|AIRLINES?)\b`,
			IsRegex:         true,
			Category:        model.CategoryTravel,
			Priority:        75,
		},
		{
			Name:            "Lodging and booking sites",
			MerchantPattern: `\b(HOTEL|AIRBNB|BOOKING\.COM|AGODA|EXPEDIA|TRIP\.COM|KLOOK|MARRIOTT|HILTON|HYATT)\b`,
			IsRegex:         true,
			Category:        model.CategoryTravel,
			Priority:        75,
		},
	}
}

package topics

const (
	// Odds
	OddsQuotes = "odds_quotes"

	// Fixtures
	FixtureResults = "fixture_results"

	// Bets
	BetPlaced    = "bet_placed"
	BetCancelled = "bet_cancelled"
	BetSettled   = "bet_settled"

	// DLQs
	OddsQuotesDLQ     = "odds_quotes_dlq"
	FixtureResultsDLQ = "fixture_results_dlq"
)

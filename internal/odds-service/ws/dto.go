package ws

import "encoding/json"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
type ClientMsg struct {
	Type    string `json:"type"`     // subscribe | unsubscribe | ping
	MatchID int64  `json:"match_id"` // requerido em subscribe/unsubscribe
}

// OddsUpdate é o aviso de novas cotações de uma partida, repassado como veio do Redis
type OddsUpdate struct {
	MatchID int64           `json:"match_id"`
	Payload json.RawMessage `json:"payload"`
}

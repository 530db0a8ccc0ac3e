package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Class é a classe de liquidação de uma aposta; toda aposta PLACED cai em exatamente uma
type Class int

const (
	ClassWinningBack Class = iota + 1
	ClassLosingBack
	ClassWinningLay
	ClassLosingLay
)

var Classes = []Class{ClassWinningBack, ClassLosingBack, ClassWinningLay, ClassLosingLay}

func (c Class) String() string {
	switch c {
	case ClassWinningBack:
		return "winning_back"
	case ClassLosingBack:
		return "losing_back"
	case ClassWinningLay:
		return "winning_lay"
	case ClassLosingLay:
		return "losing_lay"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Won indica se o apostador ganhou nessa classe
func (c Class) Won() bool { return c == ClassWinningBack || c == ClassWinningLay }

// Classify separa pelo lado e por a seleção apostada ser ou não a vencedora
func Classify(side Side, selectionID, winningSelectionID int64) (Class, error) {
	hit := selectionID == winningSelectionID
	switch side {
	case SideBack:
		if hit {
			return ClassWinningBack, nil
		}
		return ClassLosingBack, nil
	case SideLay:
		if hit {
			return ClassLosingLay, nil
		}
		return ClassWinningLay, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSide, side)
}

var one = decimal.NewFromInt(1)

// Payout calcula returned_amount do ponto de vista de quem apostou:
//
//	winning BACK: stake × odds (retorno bruto, stake incluída)
//	losing BACK:  0
//	winning LAY:  +stake (o layer fica com a stake do backer)
//	losing LAY:   −stake × (odds − 1) (responsabilidade do layer)
func Payout(c Class, amount, odds decimal.Decimal) decimal.Decimal {
	switch c {
	case ClassWinningBack:
		return amount.Mul(odds)
	case ClassWinningLay:
		return amount
	case ClassLosingLay:
		return amount.Mul(odds.Sub(one)).Neg()
	}
	return decimal.Zero
}

// Settlement é a mutação a aplicar numa aposta PLACED
type Settlement struct {
	BetID          int64
	BettorID       int64
	MatchID        int64
	SelectionID    int64
	Side           Side
	Class          Class
	RunnerOutcome  RunnerType
	BetWon         bool
	ReturnedAmount decimal.Decimal
}

// Settle liquida uma aposta contra a seleção vencedora usando a odd congelada na aposta
func Settle(b Bet, winningSelectionID int64, outcome RunnerType) (Settlement, error) {
	c, err := Classify(b.BackOrLay, b.SelectionID, winningSelectionID)
	if err != nil {
		return Settlement{}, fmt.Errorf("bet %d: %w", b.ID, err)
	}
	return Settlement{
		BetID:          b.ID,
		BettorID:       b.BettorID,
		MatchID:        b.MatchID,
		SelectionID:    b.SelectionID,
		Side:           b.BackOrLay,
		Class:          c,
		RunnerOutcome:  outcome,
		BetWon:         c.Won(),
		ReturnedAmount: Payout(c, b.BetAmount, b.SelectionOdds),
	}, nil
}

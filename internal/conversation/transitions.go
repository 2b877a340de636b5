package conversation

import (
	"fmt"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/metrics"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
)

// transitions lists the forward moves out of each stage. Staying put and
// resetting to initial are always allowed.
var transitions = map[models.Stage][]models.Stage{
	models.StageInitial:  {models.StageName},
	models.StageName:     {models.StageEmail},
	models.StageEmail:    {models.StagePhone},
	models.StagePhone:    {models.StageMuseum},
	models.StageMuseum:   {models.StageDate},
	models.StageDate:     {models.StageTime},
	models.StageTime:     {models.StageVisitors},
	models.StageVisitors: {models.StagePayment},
	// back to time when the slot filled up during payment
	models.StagePayment:  {models.StageComplete, models.StageTime},
	models.StageComplete: nil,
}

// accepts lists the input kinds each stage handles. Initial takes anything.
var accepts = map[models.Stage][]models.InputKind{
	models.StageName:     {models.InputText, models.InputEdit},
	models.StageEmail:    {models.InputText, models.InputEdit},
	models.StagePhone:    {models.InputText, models.InputEdit},
	models.StageMuseum:   {models.InputSelectVenue, models.InputText},
	models.StageDate:     {models.InputSelectDate, models.InputText},
	models.StageTime:     {models.InputSelectSlot, models.InputText},
	models.StageVisitors: {models.InputVisitors},
	models.StagePayment:  {models.InputPayment},
}

// CanTransition reports whether the table allows moving from one stage to
// another.
func CanTransition(from, to models.Stage) bool {
	if from == to || to == models.StageInitial {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func accepted(stage models.Stage, kind models.InputKind) bool {
	if stage == models.StageInitial {
		return true
	}
	for _, k := range accepts[stage] {
		if k == kind {
			return true
		}
	}
	return false
}

func advance(session *models.Session, to models.Stage) error {
	from := session.Stage
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, from, to)
	}
	if from != to {
		metrics.IncTransition(from.String(), to.String())
	}
	session.Stage = to
	return nil
}

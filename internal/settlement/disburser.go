package settlement

import (
	"context"
	"fmt"

	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/logger"
)

// LogDisburser records payout transfers in the service log instead of calling
// an external payment rail. It stands in until a banking provider is wired up.
type LogDisburser struct {
	logg *logger.Logger
}

func NewLogDisburser(logg *logger.Logger) (*LogDisburser, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LogDisburser{logg: logg}, nil
}

func (d *LogDisburser) Send(ctx context.Context, payout *models.SellerPayout) error {
	if payout == nil {
		return fmt.Errorf("payout required")
	}
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"payout_id":   payout.ID,
		"seller_id":   payout.SellerID,
		"net_amount":  payout.NetAmount.StringFixed(2),
		"destination": payout.Destination,
	})
	d.logg.Info(logCtx, "payout transfer recorded")
	return nil
}

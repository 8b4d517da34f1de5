package payload

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/xrpl"
)

// ErrUndeclaredPurpose is returned for a payment draft whose metadata blob
// does not resolve to a purchase or activation. The backend never forwards a
// payment whose destination it cannot derive itself; the donation drafts are
// the one exemption.
var ErrUndeclaredPurpose = errors.New("payment draft must declare a purchase or activation purpose")

// injectDestination rewrites the destination and amount of a payment draft
// based on the tenant configuration and the vanity intent carried in the
// draft's metadata blob. Non-payment drafts pass through untouched.
func (o *Orchestrator) injectDestination(
	ctx context.Context,
	draft *domain.PayloadDraft,
	t *domain.Tenant,
	origin, referer string,
) error {
	if !draft.TxJSON.IsPayment() || o.isDonation(draft) {
		return nil
	}

	blob := draft.Blob()
	intent, err := blob.Intent()
	if err != nil {
		return err
	}
	if intent == nil {
		return ErrUndeclaredPurpose
	}

	switch intent.Kind {
	case domain.IntentActivation:
		// Activation payments fund the vanity account itself with the fixed
		// reserve amount.
		draft.TxJSON.SetDestination(intent.Address, nil)
		draft.TxJSON["Amount"] = o.activationAmount
		return nil

	case domain.IntentPurchase:
		dest, ok := t.Destination(origin, referer)
		if !ok {
			return fmt.Errorf("no destination account configured for origin %s", origin)
		}
		draft.TxJSON.SetDestination(dest.Account, dest.Tag)

		price, ok := t.Price(intent.Length)
		if !ok {
			return fmt.Errorf("no price configured for vanity length %d", intent.Length)
		}

		rate, err := o.rates.TrustlineLimit(ctx)
		if err != nil {
			return fmt.Errorf("resolve conversion rate: %w", err)
		}

		drops, err := xrpl.DropsFromReference(price, rate)
		if err != nil {
			return fmt.Errorf("convert price: %w", err)
		}
		draft.TxJSON["Amount"] = strconv.FormatInt(drops, 10)
		return nil
	}

	return fmt.Errorf("unknown vanity intent %v", intent.Kind)
}

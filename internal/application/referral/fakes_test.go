package referral

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/identity"
	"github.com/maraline/backend/internal/domain/referral"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// memUserRepo is an in-memory UserRepository. Registration order is the
// insertion order, which keeps replay-ordering tests deterministic even when
// CreatedAt timestamps collide.
type memUserRepo struct {
	users map[uuid.UUID]*identity.User
	order []uuid.UUID
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*identity.User)}
}

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	for _, id := range r.order {
		if r.users[id].Email == email {
			return r.users[id], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memUserRepo) FindByReferralCode(ctx context.Context, code string) (*identity.User, error) {
	for _, id := range r.order {
		if r.users[id].ReferralCode == code {
			return r.users[id], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memUserRepo) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	all, _ := r.FindAllOrderedByRegistration(ctx)
	return all, int64(len(all)), nil
}

func (r *memUserRepo) FindAllOrderedByRegistration(ctx context.Context) ([]*identity.User, error) {
	result := make([]*identity.User, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.users[id])
	}
	return result, nil
}

func (r *memUserRepo) FindDirectReferrals(ctx context.Context, sponsorID uuid.UUID, activated *bool) ([]*identity.User, error) {
	var result []*identity.User
	for _, id := range r.order {
		u := r.users[id]
		if u.SponsorID == nil || *u.SponsorID != sponsorID {
			continue
		}
		if activated != nil && u.MetReferralThreshold != *activated {
			continue
		}
		result = append(result, u)
	}
	return result, nil
}

func (r *memUserRepo) CountDirectReferrals(ctx context.Context, sponsorID uuid.UUID, activated bool) (int, error) {
	matches, _ := r.FindDirectReferrals(ctx, sponsorID, &activated)
	return len(matches), nil
}

func (r *memUserRepo) Save(ctx context.Context, user *identity.User) error {
	if _, ok := r.users[user.ID]; !ok {
		r.order = append(r.order, user.ID)
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

// memLedgerRepo is an in-memory LedgerRepository that emulates the unique
// constraint over the idempotency key columns.
type memLedgerRepo struct {
	entries []*referral.LedgerEntry
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{}
}

func (r *memLedgerRepo) duplicate(e *referral.LedgerEntry) bool {
	for _, existing := range r.entries {
		if existing.UserID != e.UserID || existing.Kind != e.Kind {
			continue
		}
		switch e.Kind {
		case referral.KindDirectBonus:
			if existing.PairIndex == e.PairIndex {
				return true
			}
		case referral.KindChainBonus:
			if existing.Level == e.Level && existing.PairIndex == e.PairIndex &&
				existing.PairOwnerID != nil && e.PairOwnerID != nil && *existing.PairOwnerID == *e.PairOwnerID {
				return true
			}
		case referral.KindPassivePayout, referral.KindPassiveRefill:
			if existing.Period == e.Period {
				return true
			}
		case referral.KindEligibilityMarker:
			return true
		}
	}
	return false
}

func (r *memLedgerRepo) Insert(ctx context.Context, entry *referral.LedgerEntry) error {
	if r.duplicate(entry) {
		return shared.ErrAlreadyExists
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memLedgerRepo) FindByID(ctx context.Context, id uuid.UUID) (*referral.LedgerEntry, error) {
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memLedgerRepo) FindByUser(ctx context.Context, userID uuid.UUID, filter referral.LedgerFilter) ([]*referral.LedgerEntry, int64, error) {
	var result []*referral.LedgerEntry
	for _, e := range r.entries {
		if e.UserID != userID {
			continue
		}
		if filter.Kind != nil && e.Kind != *filter.Kind {
			continue
		}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, int64(len(result)), nil
}

func (r *memLedgerRepo) HasDirectBonus(ctx context.Context, userID uuid.UUID, pairIndex int) (bool, error) {
	for _, e := range r.entries {
		if e.Kind == referral.KindDirectBonus && e.UserID == userID && e.PairIndex == pairIndex {
			return true, nil
		}
	}
	return false, nil
}

func (r *memLedgerRepo) HasChainBonus(ctx context.Context, userID uuid.UUID, level int, pairOwnerID uuid.UUID, pairIndex int) (bool, error) {
	for _, e := range r.entries {
		if e.Kind == referral.KindChainBonus && e.UserID == userID && e.Level == level &&
			e.PairIndex == pairIndex && e.PairOwnerID != nil && *e.PairOwnerID == pairOwnerID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memLedgerRepo) HasEligibilityMarker(ctx context.Context, userID uuid.UUID) (bool, error) {
	for _, e := range r.entries {
		if e.Kind == referral.KindEligibilityMarker && e.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memLedgerRepo) HasRefillForPeriod(ctx context.Context, userID uuid.UUID, period string) (bool, error) {
	for _, e := range r.entries {
		if e.Kind == referral.KindPassiveRefill && e.UserID == userID && e.Period == period {
			return true, nil
		}
	}
	return false, nil
}

func (r *memLedgerRepo) HasPayoutForPeriod(ctx context.Context, userID uuid.UUID, period string) (bool, error) {
	for _, e := range r.entries {
		if e.Kind == referral.KindPassivePayout && e.UserID == userID && e.Period == period {
			return true, nil
		}
	}
	return false, nil
}

func (r *memLedgerRepo) EngineTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range r.entries {
		if e.UserID == userID && e.Kind.IsEngineKind() && e.Amount.IsPositive() {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (r *memLedgerRepo) EarningsTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range r.entries {
		if e.UserID != userID || !e.Amount.IsPositive() {
			continue
		}
		if e.Kind.IsEngineKind() || e.Kind == referral.KindPassivePayout {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (r *memLedgerRepo) FindByOrderRefKey(ctx context.Context, orderRefKey string) ([]*referral.LedgerEntry, error) {
	var result []*referral.LedgerEntry
	for _, e := range r.entries {
		if e.OrderRefKey == orderRefKey {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *memLedgerRepo) SumBonusesForOrder(ctx context.Context, orderRefKey string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range r.entries {
		if e.OrderRefKey == orderRefKey && e.Kind.IsEngineKind() && e.Amount.IsPositive() {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (r *memLedgerRepo) FindDirectBonusesAbovePair(ctx context.Context, userID uuid.UUID, pairIndex int) ([]*referral.LedgerEntry, error) {
	var result []*referral.LedgerEntry
	for _, e := range r.entries {
		if e.Kind == referral.KindDirectBonus && e.UserID == userID && e.PairIndex > pairIndex {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *memLedgerRepo) FindChainBonusesForPairs(ctx context.Context, pairOwnerID uuid.UUID, pairIndexes []int) ([]*referral.LedgerEntry, error) {
	want := make(map[int]struct{}, len(pairIndexes))
	for _, p := range pairIndexes {
		want[p] = struct{}{}
	}
	var result []*referral.LedgerEntry
	for _, e := range r.entries {
		if e.Kind != referral.KindChainBonus || e.PairOwnerID == nil || *e.PairOwnerID != pairOwnerID {
			continue
		}
		if _, ok := want[e.PairIndex]; ok {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *memLedgerRepo) Remove(ctx context.Context, ids []uuid.UUID) error {
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := r.entries[:0]
	for _, e := range r.entries {
		if _, gone := drop[e.ID]; !gone {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

func (r *memLedgerRepo) DeleteEngineEntries(ctx context.Context) error {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if !e.Kind.IsEngineKind() {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

func (r *memLedgerRepo) countByKind(kind referral.EntryKind) int {
	n := 0
	for _, e := range r.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// memOrderRepo is an in-memory OrderRepository
type memOrderRepo struct {
	orders map[uuid.UUID]*trade.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*trade.Order)}
}

func (r *memOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	if o, ok := r.orders[id]; ok {
		return o, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memOrderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*trade.Order, error) {
	for _, o := range r.orders {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memOrderRepo) FindByOrderRefKey(ctx context.Context, orderRefKey string) (*trade.Order, error) {
	for _, o := range r.orders {
		if o.OrderRefKey == orderRefKey {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memOrderRepo) FindAll(ctx context.Context, filter trade.OrderFilter) (*shared.Paginated[trade.Order], error) {
	p := shared.NewPaginated([]trade.Order{}, 0, 1, 20)
	return &p, nil
}

func (r *memOrderRepo) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (*shared.Paginated[trade.Order], error) {
	p := shared.NewPaginated([]trade.Order{}, 0, 1, 20)
	return &p, nil
}

func (r *memOrderRepo) HasPendingOrders(ctx context.Context, buyerID uuid.UUID) (bool, error) {
	for _, o := range r.orders {
		if o.BuyerID == buyerID && o.Status == trade.OrderStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memOrderRepo) Save(ctx context.Context, order *trade.Order) error {
	r.orders[order.ID] = order
	return nil
}

// memWithdrawalLedger is an in-memory WithdrawalLedger
type memWithdrawalLedger struct {
	approved map[uuid.UUID]decimal.Decimal
}

func newMemWithdrawalLedger() *memWithdrawalLedger {
	return &memWithdrawalLedger{approved: make(map[uuid.UUID]decimal.Decimal)}
}

func (r *memWithdrawalLedger) SumApprovedByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if total, ok := r.approved[userID]; ok {
		return total, nil
	}
	return decimal.Zero, nil
}

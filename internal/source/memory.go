package source

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/pickup/internal/catalog"
	"github.com/roach88/pickup/internal/domain"
)

// MemoryAuth is an in-process AuthSource and Authenticator.
type MemoryAuth struct {
	mu          sync.Mutex
	userID      string
	credentials map[string]memoryCredential
	providers   map[string]string
	checkErr    error
	users       *Feed[string]
}

type memoryCredential struct {
	password string
	userID   string
}

// NewMemoryAuth creates an auth source with an optional persisted session.
func NewMemoryAuth(persistedUserID string) *MemoryAuth {
	return &MemoryAuth{
		userID:      persistedUserID,
		credentials: make(map[string]memoryCredential),
		providers:   make(map[string]string),
		users:       NewFeed[string](),
	}
}

// AddUser registers email and password credentials for userID.
func (a *MemoryAuth) AddUser(email, password, userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.credentials[email] = memoryCredential{password: password, userID: userID}
}

// AddProvider maps a provider to the user id its sign in yields.
func (a *MemoryAuth) AddProvider(provider, userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.providers[provider] = userID
}

// FailSessionCheck makes CheckPersistedSession return err.
func (a *MemoryAuth) FailSessionCheck(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkErr = err
}

// SetSession changes the current user from outside the app, e.g. a token
// expiring.
func (a *MemoryAuth) SetSession(userID string) {
	a.mu.Lock()
	a.userID = userID
	a.mu.Unlock()
	a.users.Publish(userID)
}

func (a *MemoryAuth) CheckPersistedSession(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.checkErr != nil {
		return "", a.checkErr
	}
	return a.userID, nil
}

func (a *MemoryAuth) ObserveCurrentUserID(ctx context.Context) (<-chan string, error) {
	return a.users.Subscribe(ctx, func() string {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.userID
	}), nil
}

func (a *MemoryAuth) SignIn(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	cred, ok := a.credentials[email]
	a.mu.Unlock()
	if !ok || cred.password != password {
		return "", domain.AuthenticationRequired("invalid email or password")
	}
	a.SetSession(cred.userID)
	return cred.userID, nil
}

func (a *MemoryAuth) SignInWithProvider(ctx context.Context, provider, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	userID, ok := a.providers[provider]
	a.mu.Unlock()
	if !ok || token == "" {
		return "", domain.AuthenticationRequired("sign in with " + provider + " was not accepted")
	}
	a.SetSession(userID)
	return userID, nil
}

func (a *MemoryAuth) SignOut(ctx context.Context) error {
	a.SetSession("")
	return nil
}

// MemoryProfiles is an in-process ProfileSource.
type MemoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
	err      error
}

// NewMemoryProfiles creates a profile source holding profiles.
func NewMemoryProfiles(profiles ...domain.Profile) *MemoryProfiles {
	m := &MemoryProfiles{profiles: make(map[string]domain.Profile)}
	for _, p := range profiles {
		m.profiles[p.UserID] = p
	}
	return m
}

// Fail makes every load return err until called with nil.
func (m *MemoryProfiles) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryProfiles) LoadProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Profile{}, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.NotFoundFailure("no profile for user " + userID)
	}
	return p, nil
}

// MemoryCatalog is an in-process CatalogSource. Published deltas are folded
// into the listing returned by Snapshot.
type MemoryCatalog struct {
	mu           sync.Mutex
	items        map[string][]domain.Item
	feeds        map[string]*Feed[catalog.Delta]
	snapshotErr  error
	subscribeErr error
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		items: make(map[string][]domain.Item),
		feeds: make(map[string]*Feed[catalog.Delta]),
	}
}

// Seed replaces a seller's listing without emitting deltas.
func (c *MemoryCatalog) Seed(sellerID string, items ...domain.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[sellerID] = catalog.Load(items)
}

// Publish emits a delta to every subscriber of the seller.
func (c *MemoryCatalog) Publish(sellerID string, d catalog.Delta) {
	c.mu.Lock()
	c.items[sellerID] = catalog.Apply(c.items[sellerID], d)
	f := c.feedLocked(sellerID)
	c.mu.Unlock()
	f.Publish(d)
}

// End closes every open subscription for the seller.
func (c *MemoryCatalog) End(sellerID string) {
	c.mu.Lock()
	f := c.feedLocked(sellerID)
	c.mu.Unlock()
	f.End()
}

// Subscribers returns the number of open subscriptions for the seller.
func (c *MemoryCatalog) Subscribers(sellerID string) int {
	c.mu.Lock()
	f := c.feedLocked(sellerID)
	c.mu.Unlock()
	return f.Size()
}

// Fail makes Snapshot and Subscribe return errors until called with nils.
func (c *MemoryCatalog) Fail(snapshotErr, subscribeErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshotErr = snapshotErr
	c.subscribeErr = subscribeErr
}

func (c *MemoryCatalog) Snapshot(ctx context.Context, sellerID string) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshotErr != nil {
		return nil, c.snapshotErr
	}
	return append([]domain.Item{}, c.items[sellerID]...), nil
}

func (c *MemoryCatalog) Subscribe(ctx context.Context, sellerID string) (<-chan catalog.Delta, error) {
	c.mu.Lock()
	if c.subscribeErr != nil {
		err := c.subscribeErr
		c.mu.Unlock()
		return nil, err
	}
	f := c.feedLocked(sellerID)
	c.mu.Unlock()
	return f.Subscribe(ctx, nil), nil
}

func (c *MemoryCatalog) feedLocked(sellerID string) *Feed[catalog.Delta] {
	f, ok := c.feeds[sellerID]
	if !ok {
		f = NewFeed[catalog.Delta]()
		c.feeds[sellerID] = f
	}
	return f
}

// MemoryOrders is an in-process OrderStore.
type MemoryOrders struct {
	mu      sync.Mutex
	orders  map[string]domain.StoredOrder
	loadErr error
	saveErr error
	changes *Feed[struct{}]
}

// NewMemoryOrders creates a store holding orders.
func NewMemoryOrders(orders ...domain.StoredOrder) *MemoryOrders {
	m := &MemoryOrders{
		orders:  make(map[string]domain.StoredOrder),
		changes: NewFeed[struct{}](),
	}
	for _, o := range orders {
		m.orders[o.ID] = o.Clone()
	}
	return m
}

// Fail makes loads and saves return errors until called with nils.
func (m *MemoryOrders) Fail(loadErr, saveErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = loadErr
	m.saveErr = saveErr
}

func (m *MemoryOrders) LoadOrder(ctx context.Context, userID, pickupSlot string) (*domain.StoredOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}

	var found *domain.StoredOrder
	for _, o := range m.orders {
		if o.UserID != userID || o.PickupSlot != pickupSlot {
			continue
		}
		if found == nil || o.CreatedDate.After(found.CreatedDate) {
			c := o.Clone()
			found = &c
		}
	}
	return found, nil
}

func (m *MemoryOrders) ObserveOrders(ctx context.Context, sellerID string) (<-chan []domain.StoredOrder, error) {
	changes := m.changes.Subscribe(ctx, func() struct{} { return struct{}{} })
	out := make(chan []domain.StoredOrder)
	go func() {
		defer close(out)
		for range changes {
			select {
			case out <- m.list(sellerID):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (m *MemoryOrders) SaveOrder(ctx context.Context, order domain.StoredOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.saveErr != nil {
		err := m.saveErr
		m.mu.Unlock()
		return err
	}
	m.orders[order.ID] = order.Clone()
	m.mu.Unlock()
	m.changes.Publish(struct{}{})
	return nil
}

// list returns the seller's orders, oldest first.
func (m *MemoryOrders) list(sellerID string) []domain.StoredOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.StoredOrder, 0, len(m.orders))
	for _, o := range m.orders {
		if o.SellerID == sellerID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedDate.Equal(out[j].CreatedDate) {
			return out[i].CreatedDate.Before(out[j].CreatedDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MemoryBasket is an in-process BasketPersistence.
type MemoryBasket struct {
	mu       sync.Mutex
	basket   domain.DraftBasket
	writeErr error
	lines    *Feed[[]domain.OrderedLine]
}

// NewMemoryBasket creates a basket holding lines.
func NewMemoryBasket(lines ...domain.OrderedLine) *MemoryBasket {
	return &MemoryBasket{
		basket: domain.DraftBasket{}.WithLines(lines),
		lines:  NewFeed[[]domain.OrderedLine](),
	}
}

// Fail makes every write return err until called with nil.
func (m *MemoryBasket) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Lines returns the persisted lines.
func (m *MemoryBasket) Lines() []domain.OrderedLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderedLine{}, m.basket.Lines...)
}

func (m *MemoryBasket) Observe(ctx context.Context) (<-chan []domain.OrderedLine, error) {
	return m.lines.Subscribe(ctx, m.Lines), nil
}

func (m *MemoryBasket) Add(ctx context.Context, line domain.OrderedLine) error {
	return m.write(ctx, func(b domain.DraftBasket) (domain.DraftBasket, error) {
		return b.Set(line), nil
	})
}

func (m *MemoryBasket) Update(ctx context.Context, line domain.OrderedLine) error {
	return m.write(ctx, func(b domain.DraftBasket) (domain.DraftBasket, error) {
		if _, ok := b.Line(line.ProductID); !ok {
			return b, domain.NotFoundFailure("no basket line for " + line.ProductID)
		}
		return b.Set(line), nil
	})
}

func (m *MemoryBasket) Remove(ctx context.Context, productID string) error {
	return m.write(ctx, func(b domain.DraftBasket) (domain.DraftBasket, error) {
		return b.Remove(productID), nil
	})
}

func (m *MemoryBasket) Clear(ctx context.Context) error {
	return m.write(ctx, func(b domain.DraftBasket) (domain.DraftBasket, error) {
		return b.WithLines(nil), nil
	})
}

func (m *MemoryBasket) write(ctx context.Context, fn func(domain.DraftBasket) (domain.DraftBasket, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return err
	}
	next, err := fn(m.basket)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.basket = next
	lines := append([]domain.OrderedLine{}, next.Lines...)
	m.mu.Unlock()

	m.lines.Publish(lines)
	return nil
}

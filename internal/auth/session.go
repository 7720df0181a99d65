package auth

import (
	"context"
	"sync"
)

// Session tracks the signed-in user on top of a Provider and notifies
// subscribers when it changes.
type Session struct {
	provider Provider

	mu          sync.Mutex
	current     *User
	subscribers map[uint64]*subscriber
	nextID      uint64
}

// NewSession creates a signed-out session
func NewSession(provider Provider) *Session {
	return &Session{
		provider:    provider,
		subscribers: make(map[uint64]*subscriber),
	}
}

// CurrentUser returns the signed-in user or nil.
func (s *Session) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) CreateAccount(ctx context.Context, email, password string) Result {
	return s.signIn(s.provider.CreateAccount(ctx, email, password))
}

func (s *Session) SignInWithEmail(ctx context.Context, email, password string) Result {
	return s.signIn(s.provider.SignInWithEmail(ctx, email, password))
}

func (s *Session) SignInWithProvider(ctx context.Context, cred ProviderCredential) Result {
	return s.signIn(s.provider.SignInWithProvider(ctx, cred))
}

// SignOut signs the current user out. Signing out while signed out succeeds.
func (s *Session) SignOut(ctx context.Context) Result {
	res := s.provider.SignOut(ctx, s.CurrentUser())
	if !res.OK() {
		return res
	}
	s.setUser(nil)
	return Result{}
}

func (s *Session) signIn(res Result) Result {
	if res.OK() && res.User != nil {
		s.setUser(res.User)
	}
	return res
}

func (s *Session) setUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u != nil {
		copied := *u
		u = &copied
	}
	s.current = u
	for _, sub := range s.subscribers {
		sub.deliver(u)
	}
}

// OnAuthStateChanged registers cb for auth state changes. cb receives the
// current state once right away and then every change. Calls for one
// subscriber never overlap, run on their own goroutine, and skip
// intermediate states when cb falls behind. The returned function
// unsubscribes and may be called more than once.
func (s *Session) OnAuthStateChanged(cb func(*User)) (unsubscribe func()) {
	sub := &subscriber{cb: cb}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = sub
	sub.deliver(s.current)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			sub.close()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Session) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// subscriber delivers states to one callback, keeping only the latest pending state
type subscriber struct {
	cb func(*User)

	mu         sync.Mutex
	pending    *User
	hasPending bool
	running    bool
	closed     bool
}

func (sub *subscriber) deliver(u *User) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.closed {
		return
	}
	sub.pending = u
	sub.hasPending = true
	if !sub.running {
		sub.running = true
		go sub.drain()
	}
}

func (sub *subscriber) drain() {
	for {
		sub.mu.Lock()
		if sub.closed || !sub.hasPending {
			sub.running = false
			sub.mu.Unlock()
			return
		}
		u := sub.pending
		sub.pending = nil
		sub.hasPending = false
		sub.mu.Unlock()

		sub.cb(u)
	}
}

func (sub *subscriber) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.closed = true
	sub.pending = nil
	sub.hasPending = false
}

// ViewSubscription holds at most one auth subscription for a view.
type ViewSubscription struct {
	session *Session

	mu          sync.Mutex
	unsubscribe func()
}

// NewViewSubscription creates an unmounted view subscription
func NewViewSubscription(session *Session) *ViewSubscription {
	return &ViewSubscription{session: session}
}

// Mount subscribes cb, releasing any subscription the view already held.
func (v *ViewSubscription) Mount(cb func(*User)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.unsubscribe != nil {
		v.unsubscribe()
	}
	v.unsubscribe = v.session.OnAuthStateChanged(cb)
}

// Unmount releases the view's subscription. Unmounting twice is harmless.
func (v *ViewSubscription) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
}

// Active reports whether the view holds a subscription.
func (v *ViewSubscription) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unsubscribe != nil
}

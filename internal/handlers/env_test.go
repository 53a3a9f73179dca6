// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// env_test.go wires the handler groups to in-memory repositories so the
// handlers run against the real services without Postgres or Valkey.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"probitcms/internal/ai"
	"probitcms/internal/auth"
	"probitcms/internal/blog"
	"probitcms/internal/contact"
	"probitcms/internal/mail"
	"probitcms/internal/middleware"
	"probitcms/internal/models"
	"probitcms/internal/moderation"
	"probitcms/internal/orders"
	"probitcms/internal/payment"
	"probitcms/internal/publicview"
	"probitcms/internal/render"
	"probitcms/internal/session"
)

type testEnv struct {
	Public *Public
	Auth   *Auth
	Admin  *Admin

	Posts    *memPosts
	Comments *memComments
	Contacts *memContacts
	Orders   *memOrders
	Cache    *memCache
	Users    *memUsers
	Sessions *memSessions
	Gateway  *stubGateway
	Sender   *stubSender
	Media    *fakeMedia
	AI       *fakeAssistant
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	renderer, err := render.New(render.Site{Company: "ITProBit", Phone: "+44 20 7946 0000", BaseURL: "https://itprobit.example"})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	env := &testEnv{
		Comments: newMemComments(),
		Contacts: newMemContacts(),
		Orders:   newMemOrders(),
		Cache:    newMemCache(),
		Users:    newMemUsers(),
		Sessions: &memSessions{},
		Gateway:  &stubGateway{},
		Sender:   &stubSender{},
		Media:    &fakeMedia{},
		AI:       &fakeAssistant{},
	}
	env.Posts = newMemPosts(env.Comments)

	posts := blog.NewService(env.Posts, env.Comments, env.Cache)
	comments := moderation.NewService(env.Comments, env.Posts, env.Cache)
	views := publicview.NewService(env.Posts, comments)
	composer := mail.NewComposer(mail.Identity{
		Company:     "ITProBit",
		FromAddress: "noreply@itprobit.example",
		AdminTo:     "office@itprobit.example",
		SiteURL:     "https://itprobit.example",
	})
	contacts := contact.NewService(env.Contacts, env.Sender, composer)
	orderSvc := orders.NewService(env.Orders, env.Gateway, "https://itprobit.example", "ITProBit")

	env.Public = NewPublic(renderer, views, comments, contacts, orderSvc, env.Cache)
	env.Auth = NewAuth(renderer, env.Sessions, env.Users, "ITProBit")
	env.Admin = NewAdmin(renderer, posts, comments, contacts, orderSvc, env.Media, env.AI, "openai")
	return env
}

// operatorSession is a session that completed 2FA.
func operatorSession() *session.Data {
	return &session.Data{
		UserID:      uuid.MustParse("6f1c7d3e-8a51-4d0e-9b55-0c7a2f1e4d10"),
		Email:       "admin@itprobit.example",
		DisplayName: "Admin",
		Role:        string(models.RoleAdmin),
		TwoFADone:   true,
	}
}

func operator() auth.Context { return operatorSession().AuthContext() }

// asOperator attaches a verified operator session to r.
func asOperator(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithSession(r.Context(), operatorSession()))
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// seedPost stores a post straight into the repository.
func (e *testEnv) seedPost(title, category string, published bool) models.Post {
	p, _ := e.Posts.Create(context.Background(), &models.Post{
		Title:     title,
		Slug:      strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Excerpt:   "About " + title,
		Content:   "## " + title + "\n\nBody text.",
		Image:     "https://cdn.itprobit.example/covers/" + strings.ToLower(strings.ReplaceAll(title, " ", "")) + ".png",
		Category:  category,
		Tags:      []string{"it"},
		Published: published,
	})
	return *p
}

func (e *testEnv) seedComment(postID uuid.UUID, author string, status models.CommentStatus) models.Comment {
	c, _ := e.Comments.Create(context.Background(), &models.Comment{
		PostID:      postID,
		AuthorName:  author,
		AuthorEmail: strings.ToLower(author) + "@example.com",
		Text:        "Comment from " + author,
		Status:      status,
	})
	return *c
}

// --- posts ---

type memPosts struct {
	mu       sync.Mutex
	posts    map[uuid.UUID]models.Post
	comments *memComments
	clock    time.Time
}

func newMemPosts(comments *memComments) *memPosts {
	return &memPosts{
		posts:    make(map[uuid.UUID]models.Post),
		comments: comments,
		clock:    time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memPosts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Hour)
	cp := *p
	cp.ID = uuid.New()
	cp.CreatedAt, cp.UpdatedAt = m.clock, m.clock
	m.posts[cp.ID] = cp
	return &cp, nil
}

func (m *memPosts) Update(_ context.Context, p *models.Post) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[p.ID]; !ok {
		return nil, nil
	}
	cp := *p
	m.posts[p.ID] = cp
	return &cp, nil
}

func (m *memPosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memPosts) FindBySlug(_ context.Context, slug string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memPosts) SlugTaken(_ context.Context, slug string, exclude uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.posts {
		if p.Slug == slug && id != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPosts) List(_ context.Context, f models.PostFilter) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search := strings.ToLower(f.Search)
	out := []models.Post{}
	for _, p := range m.posts {
		if f.PublishedOnly && !p.Published {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.Excerpt+" "+p.Content), search) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memPosts) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	posts, _ := m.List(ctx, models.PostFilter{PublishedOnly: true})
	counts := map[string]int{}
	for _, p := range posts {
		counts[p.Category]++
	}
	out := []models.CategoryCount{}
	for name, n := range counts {
		out = append(out, models.CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memPosts) Recent(ctx context.Context, n int) ([]models.Post, error) {
	posts, _ := m.List(ctx, models.PostFilter{PublishedOnly: true})
	if len(posts) > n {
		posts = posts[:n]
	}
	return posts, nil
}

func (m *memPosts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
	return nil
}

func (m *memPosts) Purge(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.posts, id)
	m.mu.Unlock()
	m.comments.deleteForPost(id)
	return nil
}

// --- comments ---

type memComments struct {
	mu       sync.Mutex
	comments map[uuid.UUID]models.Comment
	events   []models.CommentStatusEvent
	clock    time.Time
}

func newMemComments() *memComments {
	return &memComments{
		comments: make(map[uuid.UUID]models.Comment),
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memComments) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memComments) Create(_ context.Context, c *models.Comment) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.ID = uuid.New()
	cp.CreatedAt = m.tick()
	m.comments[cp.ID] = cp
	return &cp, nil
}

func (m *memComments) FindByID(_ context.Context, id uuid.UUID) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memComments) filter(keep func(models.Comment) bool) []models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Comment{}
	for _, c := range m.comments {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memComments) ListByPost(_ context.Context, postID uuid.UUID, status models.CommentStatus) ([]models.Comment, error) {
	return m.filter(func(c models.Comment) bool { return c.PostID == postID && c.Status == status }), nil
}

func (m *memComments) List(_ context.Context, status *models.CommentStatus) ([]models.Comment, error) {
	return m.filter(func(c models.Comment) bool { return status == nil || c.Status == *status }), nil
}

func (m *memComments) CountByStatus(context.Context) (map[models.CommentStatus]int, error) {
	out := make(map[models.CommentStatus]int)
	for _, c := range m.filter(func(models.Comment) bool { return true }) {
		out[c.Status]++
	}
	return out, nil
}

func (m *memComments) ApprovedCounts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[uuid.UUID]int)
	for _, c := range m.filter(func(c models.Comment) bool { return want[c.PostID] && c.IsApproved() }) {
		out[c.PostID]++
	}
	return out, nil
}

func (m *memComments) CountForPost(_ context.Context, postID uuid.UUID) (int, error) {
	return len(m.filter(func(c models.Comment) bool { return c.PostID == postID })), nil
}

func (m *memComments) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.CommentStatus, operatorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.comments[id]
	c.Status = to
	m.comments[id] = c
	m.events = append(m.events, models.CommentStatusEvent{
		ID: uuid.New(), CommentID: id, FromStatus: from, ToStatus: to,
		OperatorID: operatorID, OperatorName: "Admin", CreatedAt: m.tick(),
	})
	return nil
}

func (m *memComments) History(_ context.Context, id uuid.UUID) ([]models.CommentStatusEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.CommentStatusEvent{}
	for _, e := range m.events {
		if e.CommentID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memComments) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.comments, id)
	return nil
}

func (m *memComments) deleteForPost(postID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.comments {
		if c.PostID == postID {
			delete(m.comments, id)
		}
	}
}

// --- contacts ---

type memContacts struct {
	mu    sync.Mutex
	subs  map[uuid.UUID]models.ContactSubmission
	clock time.Time
}

func newMemContacts() *memContacts {
	return &memContacts{
		subs:  make(map[uuid.UUID]models.ContactSubmission),
		clock: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (m *memContacts) Create(_ context.Context, c *models.ContactSubmission) (*models.ContactSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	cp := *c
	cp.ID = uuid.New()
	cp.CreatedAt, cp.UpdatedAt = m.clock, m.clock
	m.subs[cp.ID] = cp
	return &cp, nil
}

func (m *memContacts) FindByID(_ context.Context, id uuid.UUID) (*models.ContactSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.subs[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memContacts) List(_ context.Context, status *models.ContactStatus) ([]models.ContactSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ContactSubmission{}
	for _, c := range m.subs {
		if status == nil || c.Status == *status {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memContacts) UpdateStatus(_ context.Context, id uuid.UUID, status models.ContactStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.subs[id]
	c.Status = status
	m.subs[id] = c
	return nil
}

func (m *memContacts) CountByStatus(ctx context.Context, status models.ContactStatus) (int, error) {
	list, _ := m.List(ctx, &status)
	return len(list), nil
}

func (m *memContacts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, id)
	return nil
}

func (m *memContacts) all() []models.ContactSubmission {
	list, _ := m.List(context.Background(), nil)
	return list
}

type stubSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *stubSender) Send(_ context.Context, msg mail.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return "msg_" + msg.To[0], nil
}

// --- orders ---

type memOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]models.Order
	clock  time.Time
}

func newMemOrders() *memOrders {
	return &memOrders{
		orders: make(map[uuid.UUID]models.Order),
		clock:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (m *memOrders) Create(_ context.Context, o *models.Order) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	cp := *o
	cp.ID = uuid.New()
	cp.CreatedAt, cp.UpdatedAt = m.clock, m.clock
	m.orders[cp.ID] = cp
	return &cp, nil
}

func (m *memOrders) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *memOrders) FindBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.CheckoutSessionID != nil && *o.CheckoutSessionID == sessionID {
			return &o, nil
		}
	}
	return nil, nil
}

func (m *memOrders) List(_ context.Context, status *models.OrderStatus) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.orders {
		if status == nil || o.Status == *status {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id uuid.UUID, status models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	o.Status = status
	m.orders[id] = o
	return nil
}

func (m *memOrders) UpdateNotes(_ context.Context, id uuid.UUID, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	o.Notes = notes
	m.orders[id] = o
	return nil
}

func (m *memOrders) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	return nil
}

func (m *memOrders) RevenueStats(context.Context) (models.RevenueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s models.RevenueStats
	for _, o := range m.orders {
		s.Count++
		s.Total += o.Amount
		switch o.Status {
		case models.OrderCompleted:
			s.Completed += o.Amount
		case models.OrderPending:
			s.Pending += o.Amount
		}
	}
	return s, nil
}

func (m *memOrders) seed(service string, amount int64, status models.OrderStatus) models.Order {
	o, _ := m.Create(context.Background(), &models.Order{
		Amount:        amount,
		Currency:      "gbp",
		Status:        status,
		CustomerName:  "Jane Client",
		CustomerEmail: "jane@client.example",
		Service:       service,
	})
	return *o
}

type stubGateway struct {
	mu       sync.Mutex
	requests []payment.CheckoutRequest
	session  *payment.Session
	err      error
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, r payment.CheckoutRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, r)
	if g.err != nil {
		return nil, g.err
	}
	return &payment.Session{ID: "cs_test_1", URL: "https://checkout.stripe.example/c/cs_test_1"}, nil
}

func (g *stubGateway) GetCheckoutSession(_ context.Context, id string) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	if g.session == nil {
		return nil, errors.New("no such checkout session")
	}
	s := *g.session
	s.ID = id
	return &s, nil
}

// --- cache ---

// memCache is both the page cache and the invalidation target.
type memCache struct {
	mu            sync.Mutex
	pages         map[string][]byte
	invalidations int
}

func newMemCache() *memCache { return &memCache{pages: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.pages[key]
	return b, ok
}

func (c *memCache) Set(_ context.Context, key string, html []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[key] = html
}

func (c *memCache) InvalidateAll(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = make(map[string][]byte)
	c.invalidations++
}

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pages)
}

// --- users and sessions ---

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemUsers() *memUsers { return &memUsers{users: make(map[uuid.UUID]*models.User)} }

func (m *memUsers) add(email, password string, totpSecret string, enabled bool) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  "Admin",
		Role:         models.RoleAdmin,
		TOTPEnabled:  enabled,
	}
	if totpSecret != "" {
		u.TOTPSecret = &totpSecret
	}
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
	return u
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memUsers) CreateFirstAdmin(_ context.Context, email, password, displayName string) (*models.User, error) {
	if n, _ := m.Count(context.Background()); n > 0 {
		return nil, nil
	}
	u := m.add(email, password, "", false)
	u.DisplayName = displayName
	cp := *u
	return &cp, nil
}

func (m *memUsers) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].TOTPSecret = &secret
	return nil
}

func (m *memUsers) EnableTOTP(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].TOTPEnabled = true
	return nil
}

func (m *memUsers) CheckPassword(u *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

type memSessions struct {
	created   []*session.Data
	rotated   []*session.Data
	destroyed int
}

func (s *memSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	s.created = append(s.created, data)
	http.SetCookie(w, &http.Cookie{Name: "pcms_session", Value: "new", Path: "/"})
	return "new", nil
}

func (s *memSessions) Rotate(_ context.Context, w http.ResponseWriter, _ *http.Request, data *session.Data) (string, error) {
	s.rotated = append(s.rotated, data)
	http.SetCookie(w, &http.Cookie{Name: "pcms_session", Value: "rotated", Path: "/"})
	return "rotated", nil
}

func (s *memSessions) Destroy(context.Context, http.ResponseWriter, *http.Request) error {
	s.destroyed++
	return nil
}

// --- media and AI ---

type fakeMedia struct {
	uploads [][]byte
	deleted []string
	err     error
}

func (f *fakeMedia) UploadImage(_ context.Context, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, data)
	return "https://cdn.itprobit.example/covers/2026/10/upload.png", nil
}

func (f *fakeMedia) Delete(_ context.Context, fileURL string) error {
	f.deleted = append(f.deleted, fileURL)
	return nil
}

type fakeAssistant struct {
	requests []ai.Request
	result   *ai.Result
	err      error
}

func (f *fakeAssistant) Run(_ context.Context, ac auth.Context, req ai.Request) (*ai.Result, error) {
	if _, err := auth.Require(ac, "ai.Run"); err != nil {
		return nil, err
	}
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &ai.Result{Action: req.Action, Text: "generated text"}, nil
}

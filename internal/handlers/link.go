package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/usage"
	"go.uber.org/zap"
)

// LinkHandler handles link creation, lookup and redirects.
type LinkHandler struct {
	service            *shortener.Service
	resolver           *shortener.Resolver
	baseURL            string
	publishLinkCreated messaging.Publish[usage.LinkCreatedEvent]
	logger             *zap.Logger
	now                func() time.Time
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(
	service *shortener.Service,
	resolver *shortener.Resolver,
	baseURL string,
	publishLinkCreated messaging.Publish[usage.LinkCreatedEvent],
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		service:            service,
		resolver:           resolver,
		baseURL:            strings.TrimSuffix(baseURL, "/"),
		publishLinkCreated: publishLinkCreated,
		logger:             logger,
		now:                time.Now,
	}
}

func (h *LinkHandler) CreateLink(ctx context.Context, req *CreateLinkRequest) (*LinkResponse, error) {
	createReq, err := h.createRequest(&req.Body)
	if err != nil {
		return nil, err
	}

	link, err := h.service.Generate(ctx, createReq)
	if err != nil {
		return nil, h.httpError(err)
	}

	h.linkCreated(ctx, link)

	resp := &LinkResponse{Body: h.linkBody(link)}
	resp.Headers.Location = resp.Body.ShortURL

	return resp, nil
}

// CreateLinks creates every requested link independently. A failed entry is
// returned as null and never fails the batch.
func (h *LinkHandler) CreateLinks(ctx context.Context, req *BatchCreateRequest) (*BatchCreateResponse, error) {
	resp := &BatchCreateResponse{}
	resp.Body.Links = make([]*LinkBody, len(req.Body.Links))

	for i := range req.Body.Links {
		createReq, err := h.createRequest(&req.Body.Links[i])
		if err != nil {
			continue
		}

		link := h.service.GenerateOrNil(ctx, createReq)
		if link == nil {
			continue
		}

		h.linkCreated(ctx, link)

		body := h.linkBody(link)
		resp.Body.Links[i] = &body
	}

	return resp, nil
}

func (h *LinkHandler) PreviewLink(ctx context.Context, req *PreviewLinkRequest) (*PreviewLinkResponse, error) {
	owner, err := ownerOf(req.Body.OwnerKind, req.Body.OwnerID)
	if err != nil {
		return nil, err
	}

	link, err := h.service.BuildWithoutSave(ctx, req.Body.URL, owner)
	if err != nil {
		return nil, h.httpError(err)
	}

	return &PreviewLinkResponse{Body: h.linkBody(link)}, nil
}

func (h *LinkHandler) ListLinks(ctx context.Context, req *ListLinksRequest) (*ListLinksResponse, error) {
	owner, err := ownerOf(req.OwnerKind, req.OwnerID)
	if err != nil {
		return nil, err
	}

	links, err := h.service.ListByOwner(ctx, owner)
	if err != nil {
		return nil, h.httpError(err)
	}

	resp := &ListLinksResponse{}
	resp.Body.Links = make([]*LinkBody, 0, len(links))

	for _, link := range links {
		body := h.linkBody(link)
		resp.Body.Links = append(resp.Body.Links, &body)
	}

	return resp, nil
}

func (h *LinkHandler) GetLink(ctx context.Context, req *GetLinkRequest) (*GetLinkResponse, error) {
	link, err := h.service.Get(ctx, shortener.Token(req.Token))
	if err != nil {
		return nil, h.httpError(err)
	}

	return &GetLinkResponse{Body: h.linkBody(link)}, nil
}

// Redirect never fails: unknown, expired and unreadable tokens all redirect to
// the default location.
func (h *LinkHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	out := h.resolver.Resolve(ctx, req.Token, req.query)

	resp := &RedirectResponse{
		Status:   out.Status,
		Location: out.Location,
	}

	if out.Link == nil {
		resp.CacheControl = "no-store"
	}

	return resp, nil
}

func (h *LinkHandler) RedirectWithSuffix(ctx context.Context, req *RedirectWithSuffixRequest) (*RedirectResponse, error) {
	return h.Redirect(ctx, &req.RedirectRequest)
}

func (h *LinkHandler) createRequest(body *CreateLinkBody) (shortener.CreateRequest, error) {
	owner, err := ownerOf(body.OwnerKind, body.OwnerID)
	if err != nil {
		return shortener.CreateRequest{}, err
	}

	if body.ExpiresAt != nil && !body.ExpiresAt.After(h.now()) {
		return shortener.CreateRequest{}, huma.Error422UnprocessableEntity("expiresAt must be in the future")
	}

	return shortener.CreateRequest{
		DestinationURL: body.URL,
		Owner:          owner,
		CustomKey:      shortener.Token(body.CustomKey),
		ExpiresAt:      body.ExpiresAt,
		Fresh:          body.Fresh,
	}, nil
}

func (h *LinkHandler) linkCreated(ctx context.Context, link *shortener.Link) {
	if err := h.publishLinkCreated(ctx, usage.CreatedEvent(ctx, link)); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("token", string(link.Token)),
			zap.Error(err),
		)
	}
}

func (h *LinkHandler) linkBody(link *shortener.Link) LinkBody {
	body := LinkBody{
		Token:          string(link.Token),
		ShortURL:       h.baseURL + "/" + string(link.Token),
		DestinationURL: link.DestinationURL,
		OwnerKind:      link.Owner.Kind,
		OwnerID:        link.Owner.ID,
		ExpiresAt:      link.ExpiresAt,
		UseCount:       link.UseCount,
	}

	if !link.CreatedAt.IsZero() {
		createdAt := link.CreatedAt
		body.CreatedAt = &createdAt
	}

	return body
}

// httpError maps service errors to HTTP errors. Unknown errors are logged and
// hidden behind a 500.
func (h *LinkHandler) httpError(err error) error {
	switch {
	case errors.Is(err, shortener.ErrInvalidURL), errors.Is(err, shortener.ErrInvalidCustomKey):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, shortener.ErrCustomKeyTaken):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, shortener.ErrKeyAllocationExhausted):
		return huma.Error503ServiceUnavailable("could not allocate a unique token, try again")
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound("link not found")
	default:
		h.logger.Error("link operation failed", zap.Error(err))

		return huma.Error500InternalServerError("internal server error")
	}
}

func ownerOf(kind, id string) (shortener.Owner, error) {
	owner := shortener.Owner{Kind: strings.TrimSpace(kind), ID: strings.TrimSpace(id)}

	if (owner.Kind == "") != (owner.ID == "") {
		return shortener.Owner{}, huma.Error422UnprocessableEntity("ownerKind and ownerId must be set together")
	}

	return owner, nil
}

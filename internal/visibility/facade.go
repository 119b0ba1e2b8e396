package visibility

import (
	"context"
	"strings"

	"github.com/zfogg/sidechain/views/internal/dto"
	"github.com/zfogg/sidechain/views/internal/logger"
	"github.com/zfogg/sidechain/views/internal/metrics"
	"github.com/zfogg/sidechain/views/internal/models"
	"github.com/zfogg/sidechain/views/internal/privacy"
	"github.com/zfogg/sidechain/views/internal/repository"
	"github.com/zfogg/sidechain/views/internal/views"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/zfogg/sidechain/views/internal/visibility"

// Redaction surfaces, used as metric labels
const (
	surfaceUser    = "user"
	surfacePost    = "post"
	surfaceViewers = "viewers"
)

// Facade is the only entry point for reading view data. Every read goes
// through Decide; validation and authorization run before any storage call.
type Facade struct {
	users      repository.UserRepository
	posts      repository.PostRepository
	ledger     *views.Ledger
	aggregator *views.Aggregator
	gate       *privacy.Gate
	tracer     trace.Tracer
}

// NewFacade wires the facade to its collaborators
func NewFacade(
	users repository.UserRepository,
	posts repository.PostRepository,
	ledger *views.Ledger,
	aggregator *views.Aggregator,
	gate *privacy.Gate,
) *Facade {
	return &Facade{
		users:      users,
		posts:      posts,
		ledger:     ledger,
		aggregator: aggregator,
		gate:       gate,
		tracer:     otel.Tracer(tracerName),
	}
}

func (f *Facade) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return f.tracer.Start(ctx, "visibility."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// GetSelf returns the requester's own profile with real view data
func (f *Facade) GetSelf(ctx context.Context, requesterID string) (resp *dto.SelfResponse, err error) {
	ctx, span := f.startSpan(ctx, "GetSelf", attribute.String("requester.id", requesterID))
	defer func() { endSpan(span, err) }()

	if err := validateID("requesterId", requesterID); err != nil {
		return nil, err
	}

	user, err := f.users.GetUser(ctx, requesterID)
	if err != nil {
		return nil, storageError(err)
	}
	return dto.ToSelfResponse(user), nil
}

// GetUser returns userID's profile as seen by requesterID
func (f *Facade) GetUser(ctx context.Context, requesterID, userID string) (resp *dto.UserResponse, err error) {
	ctx, span := f.startSpan(ctx, "GetUser",
		attribute.String("requester.id", requesterID),
		attribute.String("user.id", userID),
	)
	defer func() { endSpan(span, err) }()

	if err := validateID("userId", userID); err != nil {
		return nil, err
	}

	user, err := f.users.GetUser(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}

	hidden, err := f.gate.IsHidden(ctx, user.ID)
	if err != nil {
		return nil, storageError(err)
	}

	resp = dto.ToUserResponse(user)
	if requesterID == user.ID {
		resp.ViewCountsHidden = &hidden
	}

	decision := Decide(requesterID, user.ID, hidden)
	span.SetAttributes(attribute.String("visibility.decision", decision.String()))
	if decision == Reveal {
		count := user.PostViewedByCount
		resp.PostViewedByCount = &count
	} else {
		metrics.RecordRedaction(surfaceUser)
	}
	return resp, nil
}

// GetPost returns a post with its view data as seen by requesterID.
// viewedBy lists every viewer; paging is left to GetViewers.
func (f *Facade) GetPost(ctx context.Context, requesterID, postID string) (resp *dto.PostResponse, err error) {
	ctx, span := f.startSpan(ctx, "GetPost",
		attribute.String("requester.id", requesterID),
		attribute.String("post.id", postID),
	)
	defer func() { endSpan(span, err) }()

	if err := validateID("postId", postID); err != nil {
		return nil, err
	}

	post, err := f.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, storageError(err)
	}

	hidden, err := f.gate.IsHidden(ctx, post.UserID)
	if err != nil {
		return nil, storageError(err)
	}

	resp = dto.ToPostResponse(post)

	resp.ViewedStatus, err = f.viewedStatus(ctx, requesterID, post)
	if err != nil {
		return nil, err
	}

	decision := Decide(requesterID, post.UserID, hidden)
	span.SetAttributes(attribute.String("visibility.decision", decision.String()))
	if decision == Redact {
		metrics.RecordRedaction(surfacePost)
		return resp, nil
	}

	set, err := f.aggregator.AllViewers(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	resp.ViewedByCount = &set.Count
	resp.ViewedBy = dto.ToViewerResponses(set.Viewers)
	return resp, nil
}

// GetViewers returns one page of a post's viewers as seen by requesterID
func (f *Facade) GetViewers(ctx context.Context, requesterID, postID string, page views.Page) (resp *dto.ViewersResponse, err error) {
	ctx, span := f.startSpan(ctx, "GetViewers",
		attribute.String("requester.id", requesterID),
		attribute.String("post.id", postID),
	)
	defer func() { endSpan(span, err) }()

	if err := validateID("postId", postID); err != nil {
		return nil, err
	}
	page = page.Normalize()

	post, err := f.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, storageError(err)
	}

	hidden, err := f.gate.IsHidden(ctx, post.UserID)
	if err != nil {
		return nil, storageError(err)
	}

	resp = &dto.ViewersResponse{PostID: post.ID, Limit: page.Limit, Offset: page.Offset}
	if Decide(requesterID, post.UserID, hidden) == Redact {
		metrics.RecordRedaction(surfaceViewers)
		return resp, nil
	}

	set, err := f.aggregator.Viewers(ctx, post.ID, page)
	if err != nil {
		return nil, err
	}
	resp.ViewedByCount = &set.Count
	resp.ViewedBy = dto.ToViewerResponses(set.Viewers)
	return resp, nil
}

func (f *Facade) viewedStatus(ctx context.Context, requesterID string, post *models.Post) (models.ViewedStatus, error) {
	if requesterID == post.UserID {
		return models.Viewed, nil
	}
	viewed, err := f.aggregator.HasViewed(ctx, requesterID, post.ID)
	if err != nil {
		return "", err
	}
	if viewed {
		return models.Viewed, nil
	}
	return models.NotViewed, nil
}

// SetViewCountsHidden updates targetUserID's flag. Only the user themselves
// may do this.
func (f *Facade) SetViewCountsHidden(ctx context.Context, requesterID, targetUserID string, hidden bool) (resp *dto.PrivacyResponse, err error) {
	ctx, span := f.startSpan(ctx, "SetViewCountsHidden",
		attribute.String("requester.id", requesterID),
		attribute.String("user.id", targetUserID),
		attribute.Bool("hidden", hidden),
	)
	defer func() { endSpan(span, err) }()

	if err := validateID("userId", targetUserID); err != nil {
		return nil, err
	}
	if requesterID != targetUserID {
		logger.Log.Warn("Rejected privacy change for another user",
			logger.WithRequesterID(requesterID),
			logger.WithUserID(targetUserID),
		)
		return nil, ErrForbidden
	}

	stored, err := f.gate.SetHidden(ctx, targetUserID, hidden)
	if err != nil {
		return nil, storageError(err)
	}

	metrics.RecordPrivacyToggle(stored)
	return &dto.PrivacyResponse{ViewCountsHidden: stored}, nil
}

// RecordPostView records that requesterID opened postID
func (f *Facade) RecordPostView(ctx context.Context, requesterID, postID string) (resp *dto.RecordViewResponse, err error) {
	ctx, span := f.startSpan(ctx, "RecordPostView",
		attribute.String("requester.id", requesterID),
		attribute.String("post.id", postID),
	)
	defer func() { endSpan(span, err) }()

	if err := validateID("postId", postID); err != nil {
		return nil, err
	}

	result, err := f.ledger.Record(ctx, requesterID, postID)
	if err != nil {
		return nil, err
	}

	metrics.RecordView(string(result.Outcome))
	span.SetAttributes(attribute.String("view.outcome", string(result.Outcome)))
	return toRecordViewResponse(result), nil
}

// RecordPostViews records a batch of views. Every ID is validated before
// anything is written; unknown posts are reported, not fatal.
func (f *Facade) RecordPostViews(ctx context.Context, requesterID string, postIDs []string) (resp *dto.RecordViewsResponse, err error) {
	ctx, span := f.startSpan(ctx, "RecordPostViews",
		attribute.String("requester.id", requesterID),
		attribute.Int("posts.count", len(postIDs)),
	)
	defer func() { endSpan(span, err) }()

	for _, id := range postIDs {
		if err := validateID("postIds", id); err != nil {
			return nil, err
		}
	}

	results, missing, err := f.ledger.RecordMany(ctx, requesterID, postIDs)
	if err != nil {
		return nil, err
	}

	resp = &dto.RecordViewsResponse{
		Results:  make([]dto.RecordViewResponse, 0, len(results)),
		NotFound: make([]string, 0, len(missing)),
	}
	for _, r := range results {
		metrics.RecordView(string(r.Outcome))
		if r.Counted() {
			resp.Recorded++
		}
		resp.Results = append(resp.Results, *toRecordViewResponse(r))
	}
	resp.NotFound = append(resp.NotFound, missing...)

	logger.Log.Debug("Recorded view batch",
		logger.WithViewerID(requesterID),
		zap.Int("requested", len(postIDs)),
		zap.Int("counted", resp.Recorded),
		zap.Int("not_found", len(missing)),
	)
	return resp, nil
}

func toRecordViewResponse(r views.RecordResult) *dto.RecordViewResponse {
	return &dto.RecordViewResponse{
		PostID:   r.PostID,
		Recorded: r.Outcome != views.OutcomeSelfView,
		Outcome:  string(r.Outcome),
	}
}

// CreatePost stores a new post owned by requesterID
func (f *Facade) CreatePost(ctx context.Context, requesterID, text string) (resp *dto.PostResponse, err error) {
	ctx, span := f.startSpan(ctx, "CreatePost", attribute.String("requester.id", requesterID))
	defer func() { endSpan(span, err) }()

	if err := validateID("userId", requesterID); err != nil {
		return nil, err
	}
	if _, err := f.users.GetUser(ctx, requesterID); err != nil {
		return nil, storageError(err)
	}

	post := &models.Post{UserID: requesterID, Text: strings.TrimSpace(text)}
	if err := f.posts.CreatePost(ctx, post); err != nil {
		return nil, storageError(err)
	}

	resp = dto.ToPostResponse(post)
	count := post.ViewedByCount
	resp.ViewedByCount = &count
	resp.ViewedBy = dto.ToViewerResponses(nil)
	resp.ViewedStatus = models.Viewed
	return resp, nil
}

// DeletePost removes a post and its views. Only the owner may delete.
func (f *Facade) DeletePost(ctx context.Context, requesterID, postID string) (err error) {
	ctx, span := f.startSpan(ctx, "DeletePost",
		attribute.String("requester.id", requesterID),
		attribute.String("post.id", postID),
	)
	defer func() { endSpan(span, err) }()

	if err := validateID("postId", postID); err != nil {
		return err
	}

	post, err := f.posts.GetPost(ctx, postID)
	if err != nil {
		return storageError(err)
	}
	if post.UserID != requesterID {
		return ErrForbidden
	}

	_, err = f.ledger.PurgePost(ctx, postID)
	return err
}

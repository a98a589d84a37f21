package lifecycle

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/errs"
	"github.com/homefix-app/platform_be_homefix/internal/models"
)

// SubmitReview records a post-completion review, one per (job, author), and
// refreshes the subject's aggregate rating, which feeds the matcher.
func (c *Controller) SubmitReview(ctx context.Context, authorID, jobID uuid.UUID, rating int, text string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errs.Validation("rating must be between 1 and 5")
	}
	job, err := c.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted {
		return nil, errs.InvalidTransition("reviews open once the job is completed", AllowedFrom(job.Status))
	}
	if !isParty(job, authorID) {
		return nil, errs.Forbidden("only the job's parties can review it")
	}
	subject := counterpart(job, authorID)
	if subject == nil {
		return nil, errs.Validation("job has no counterpart to review")
	}
	if _, err := c.store.ReviewByJobAndAuthor(ctx, jobID, authorID); err == nil {
		return nil, errs.Conflict("you already reviewed this job")
	} else if errs.KindOf(err) != errs.KindNotFound {
		return nil, err
	}

	review := &models.Review{
		JobID:     jobID,
		AuthorID:  authorID,
		SubjectID: *subject,
		Rating:    rating,
		Text:      text,
	}
	if err := c.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	if err := c.recomputeRating(ctx, *subject); err != nil {
		log.Printf("Error recomputing rating for %s: %v", subject, err)
	}
	return review, nil
}

// recomputeRating recalculates the subject's average from scratch rather
// than nudging it incrementally; review volume per user stays small.
func (c *Controller) recomputeRating(ctx context.Context, subjectID uuid.UUID) error {
	reviews, err := c.store.ReviewsBySubject(ctx, subjectID)
	if err != nil {
		return err
	}
	user, err := c.store.UserByID(ctx, subjectID)
	if err != nil {
		return err
	}

	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	user.RatingCount = len(reviews)
	user.AverageRating = 0
	if len(reviews) > 0 {
		user.AverageRating = float64(sum) / float64(len(reviews))
	}
	return c.store.UpdateUser(ctx, user)
}

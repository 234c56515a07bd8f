package database

import (
	"context"
	"errors"

	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"gorm.io/gorm"
)

type SubscriptionRepo struct {
	db *gorm.DB
}

func NewSubscriptionRepo(db *gorm.DB) *SubscriptionRepo {
	return &SubscriptionRepo{db}
}

// Subscribe makes followerID follow leaderID. Following oneself or
// following twice is a bad request; an unknown leader is not found.
func (r *SubscriptionRepo) Subscribe(ctx context.Context, followerID, leaderID uint) error {
	if followerID == leaderID {
		return errs.NewBadRequestError("you cannot subscribe to yourself")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var leader models.User
		if err := tx.Select("id").First(&leader, leaderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NewNotFound("user")
			}
			return err
		}
		return tx.Omit("Follower", "Leader").Create(&models.Subscription{FollowerID: followerID, LeaderID: leaderID}).Error
	})
	if errs.IsUniqueViolation(err) {
		return errs.NewBadRequestError("you are already subscribed to this user")
	}
	return errs.NewDatabaseError("create", "subscription", err)
}

func (r *SubscriptionRepo) Unsubscribe(ctx context.Context, followerID, leaderID uint) error {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND leader_id = ?", followerID, leaderID).
		Delete(&models.Subscription{})
	if result.Error != nil {
		return errs.NewDatabaseError("delete", "subscription", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NewBadRequestError("you are not subscribed to this user")
	}
	return nil
}

// Leaders returns one page of the users followerID follows, ordered by id.
func (r *SubscriptionRepo) Leaders(ctx context.Context, followerID uint, limit, offset int) ([]models.User, int64, error) {
	followed := r.db.Model(&models.Subscription{}).Select("leader_id").Where("follower_id = ?", followerID)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id IN (?)", followed).Count(&total).Error; err != nil {
		return nil, 0, errs.NewDatabaseError("count", "subscriptions", err)
	}

	var leaders []models.User
	q := r.db.WithContext(ctx).Where("id IN (?)", followed).Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&leaders).Error; err != nil {
		return nil, 0, errs.NewDatabaseError("list", "subscriptions", err)
	}
	return leaders, total, nil
}

// FollowingAmong returns which of leaderIDs followerID follows.
func (r *SubscriptionRepo) FollowingAmong(ctx context.Context, followerID uint, leaderIDs []uint) (map[uint]bool, error) {
	following := make(map[uint]bool, len(leaderIDs))
	if followerID == 0 || len(leaderIDs) == 0 {
		return following, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("follower_id = ? AND leader_id IN ?", followerID, leaderIDs).
		Pluck("leader_id", &ids).Error
	if err != nil {
		return nil, errs.NewDatabaseError("load", "subscriptions", err)
	}
	for _, id := range ids {
		following[id] = true
	}
	return following, nil
}

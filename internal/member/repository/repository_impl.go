package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/otherscentered/platform/internal/member/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, member *domain.Member) error {
	return conn.WithContext(ctx).Create(member).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Member, error) {
	var member domain.Member
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

package repository

import (
	"context"

	"edu-archive-go/internal/model"

	"gorm.io/gorm"
)

// PeriodRepository 接口定义了学年学期的数据操作方法。
type PeriodRepository interface {
	Create(ctx context.Context, period *model.AcademicPeriod) error
	FindByID(ctx context.Context, id uint) (*model.AcademicPeriod, error)
	FindByKey(ctx context.Context, yearStart, yearEnd int, semester string) (*model.AcademicPeriod, error)
	FindAll(ctx context.Context) ([]model.AcademicPeriod, error)
	Update(ctx context.Context, period *model.AcademicPeriod) error
	Delete(ctx context.Context, id uint) error
}

type periodRepository struct {
	db *gorm.DB
}

// NewPeriodRepository 创建一个新的 PeriodRepository 实例。
func NewPeriodRepository(db *gorm.DB) PeriodRepository {
	return &periodRepository{db: db}
}

func (r *periodRepository) Create(ctx context.Context, period *model.AcademicPeriod) error {
	return r.db.WithContext(ctx).Create(period).Error
}

func (r *periodRepository) FindByID(ctx context.Context, id uint) (*model.AcademicPeriod, error) {
	var period model.AcademicPeriod
	if err := r.db.WithContext(ctx).First(&period, id).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

// FindByKey 按 (起始年, 结束年, 学期) 唯一键查找。
func (r *periodRepository) FindByKey(ctx context.Context, yearStart, yearEnd int, semester string) (*model.AcademicPeriod, error) {
	var period model.AcademicPeriod
	err := r.db.WithContext(ctx).
		Where("year_start = ? AND year_end = ? AND semester = ?", yearStart, yearEnd, semester).
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

// FindAll 按起始年倒序返回所有学期。
func (r *periodRepository) FindAll(ctx context.Context) ([]model.AcademicPeriod, error) {
	var periods []model.AcademicPeriod
	err := r.db.WithContext(ctx).Order("year_start DESC").Order("semester ASC").Find(&periods).Error
	return periods, err
}

func (r *periodRepository) Update(ctx context.Context, period *model.AcademicPeriod) error {
	return r.db.WithContext(ctx).Save(period).Error
}

func (r *periodRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.AcademicPeriod{}, id).Error
}

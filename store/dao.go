package store

import (
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repository is the persistence used by Store.
type Repository interface {
	SaveRun(run *RunRecord) error
	SelectRun(id uint64) ([]*RunRecord, error)
	SelectRecentRuns(limit int) ([]*RunRecord, error)
}

type Dao struct {
	db *gorm.DB
}

func NewDao(url, scheme, user, passwd string) (*Dao, error) {
	dao := &Dao{}
	Logger := logger.Default
	Logger = Logger.LogMode(logger.Warn)
	db, err := gorm.Open(mysql.Open(user+":"+passwd+"@tcp("+url+")/"+
		scheme+"?charset=utf8"), &gorm.Config{Logger: Logger})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s/%s", url, scheme)
	}
	err = db.AutoMigrate(&RunRecord{}, &StepRecord{})
	if err != nil {
		return nil, errors.Wrap(err, "migrate")
	}
	dao.db = db
	return dao, nil
}

func (dao *Dao) SaveRun(run *RunRecord) error {
	return dao.db.Create(run).Error
}

func (dao *Dao) SelectRun(id uint64) ([]*RunRecord, error) {
	runs := make([]*RunRecord, 0)
	res := dao.db.Where("id = ?", id).Preload("StepRecords").Find(&runs)
	return runs, res.Error
}

func (dao *Dao) SelectRecentRuns(limit int) ([]*RunRecord, error) {
	runs := make([]*RunRecord, 0)
	res := dao.db.Order("id desc").Limit(limit).Preload("StepRecords").Find(&runs)
	return runs, res.Error
}

package repository

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// firstOrNil 查询单条记录，不存在时返回 (nil, nil)
func firstOrNil[T any](query *gorm.DB, conds ...interface{}) (*T, error) {
	var out T
	err := query.First(&out, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// keywordLike 多列 OR 模糊匹配 scope；关键字中的通配符按字面匹配
func keywordLike(keyword string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" || len(columns) == 0 {
			return db
		}
		clause, n := likeClause(dialectName(db), columns)
		if n == 0 {
			return db
		}
		pattern := "%" + likeEscaper.Replace(keyword) + "%"
		args := make([]interface{}, n)
		for i := range args {
			args[i] = pattern
		}
		return db.Where(clause, args...)
	}
}

// likeClause postgres 使用 ILIKE 保持与 sqlite 一致的大小写不敏感
func likeClause(dialect string, columns []string) (string, int) {
	op := "LIKE"
	if dialect == "postgres" || dialect == "postgresql" {
		op = "ILIKE"
	}
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		if col = strings.TrimSpace(col); col != "" {
			parts = append(parts, fmt.Sprintf(`%s %s ? ESCAPE '\'`, col, op))
		}
	}
	if len(parts) == 0 {
		return "", 0
	}
	return "(" + strings.Join(parts, " OR ") + ")", len(parts)
}

func dialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	if name := strings.ToLower(db.Dialector.Name()); name != "" {
		return name
	}
	return "sqlite"
}

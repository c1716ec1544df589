// Package tm SQLite 翻译记忆库
package tm

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/diffleverage"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/leverage"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	src_locale TEXT NOT NULL,
	trg_locale TEXT NOT NULL,
	src_text   TEXT NOT NULL,
	src_coded  TEXT NOT NULL,
	src_codes  TEXT NOT NULL,
	trg_coded  TEXT NOT NULL,
	trg_codes  TEXT NOT NULL,
	origin     TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	UNIQUE (src_locale, trg_locale, src_coded, src_codes)
);
CREATE INDEX IF NOT EXISTS idx_entries_locales ON entries (src_locale, trg_locale);
`

// exactCodeMismatch 编码文本相同但代码数据不同时的分数
const exactCodeMismatch = 99

// Entry 记忆库条目
type Entry struct {
	ID           string
	SourceLocale resource.LocaleID
	TargetLocale resource.LocaleID
	Source       *resource.TextFragment
	Target       *resource.TextFragment
	Origin       string
	Created      time.Time
}

// Match 查询结果
type Match struct {
	Entry
	Score int
	Type  resource.MatchType
}

// Memory 翻译记忆库
type Memory struct {
	db     *sql.DB
	name   string
	logger *zap.Logger
}

// Option 打开选项
type Option func(*Memory)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(m *Memory) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithName 候选来源名，默认为数据库路径
func WithName(name string) Option {
	return func(m *Memory) {
		m.name = name
	}
}

// Open 打开（必要时创建）文件数据库
func Open(path string, opts ...Option) (*Memory, error) {
	if path == "" {
		return nil, errs.BadParameters("tm.Open", "empty database path", nil)
	}
	return open(path, path, []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}, opts)
}

// OpenMemory 打开内存数据库，关闭后内容丢失
func OpenMemory(opts ...Option) (*Memory, error) {
	return open(":memory:", "memory", nil, opts)
}

func open(dsn, name string, pragmas []string, opts []Option) (*Memory, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.IO("tm.Open", err)
	}
	// 内存库每个连接各自独立，只能保留一个连接
	db.SetMaxOpenConns(1)

	m := &Memory{db: db, name: name, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errs.IO("tm.Open", fmt.Errorf("%s: %w", pragma, err))
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.IO("tm.Open", fmt.Errorf("create schema: %w", err))
	}
	m.logger.Debug("translation memory opened", zap.String("name", m.name))
	return m, nil
}

// Name 来源名
func (m *Memory) Name() string { return m.name }

// Close 关闭数据库
func (m *Memory) Close() error {
	if err := m.db.Close(); err != nil {
		return errs.IO("tm.Close", err)
	}
	return nil
}

// Add 写入条目，源文与语言相同的旧条目被替换
func (m *Memory) Add(ctx context.Context, e Entry) error {
	if e.Source == nil || e.Target == nil {
		return errs.BadInput("tm.Add", "entry needs both source and target", nil)
	}
	if e.SourceLocale.IsEmpty() || e.TargetLocale.IsEmpty() {
		return errs.BadInput("tm.Add", "entry needs both locales", nil)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Created.IsZero() {
		e.Created = time.Now()
	}
	srcCodes, err := encodeCodes(e.Source)
	if err != nil {
		return err
	}
	trgCodes, err := encodeCodes(e.Target)
	if err != nil {
		return err
	}

	_, err = m.db.ExecContext(ctx, `
INSERT INTO entries (id, src_locale, trg_locale, src_text, src_coded, src_codes, trg_coded, trg_codes, origin, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (src_locale, trg_locale, src_coded, src_codes) DO UPDATE SET
	trg_coded = excluded.trg_coded,
	trg_codes = excluded.trg_codes,
	origin = excluded.origin,
	created_at = excluded.created_at`,
		e.ID, e.SourceLocale.String(), e.TargetLocale.String(), e.Source.Text(),
		e.Source.CodedText(), srcCodes, e.Target.CodedText(), trgCodes,
		e.Origin, e.Created.UnixMilli())
	if err != nil {
		return errs.IO("tm.Add", err)
	}
	return nil
}

// Count 条目总数
func (m *Memory) Count(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, errs.IO("tm.Count", err)
	}
	return n, nil
}

// Exact 编码文本完全相同的条目，代码数据也相同的排在前面
func (m *Memory) Exact(ctx context.Context, src *resource.TextFragment, srcLoc, trgLoc resource.LocaleID) ([]Match, error) {
	codes, err := encodeCodes(src)
	if err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx, `
SELECT id, src_coded, src_codes, trg_coded, trg_codes, origin, created_at
FROM entries WHERE src_locale = ? AND trg_locale = ? AND src_coded = ?`,
		srcLoc.String(), trgLoc.String(), src.CodedText())
	if err != nil {
		return nil, errs.IO("tm.Exact", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		e, rawCodes, err := m.scan(rows, srcLoc, trgLoc)
		if err != nil {
			return nil, err
		}
		score := 100
		if rawCodes != codes {
			score = exactCodeMismatch
		}
		matches = append(matches, Match{Entry: e, Score: score, Type: resource.MatchExact})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.IO("tm.Exact", err)
	}
	sortMatches(matches)
	return matches, nil
}

// Fuzzy 按相似度返回不低于 threshold 的条目，最多 limit 个（0 表示不限）
//
// 相似度与差异复用使用同一算法，按纯文本计算。
func (m *Memory) Fuzzy(ctx context.Context, src *resource.TextFragment, srcLoc, trgLoc resource.LocaleID, threshold, limit int) ([]Match, error) {
	if threshold < 0 || threshold > 100 {
		return nil, errs.BadParameters("tm.Fuzzy", fmt.Sprintf("threshold %d out of range 0..100", threshold), nil)
	}
	codes, err := encodeCodes(src)
	if err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx, `
SELECT id, src_coded, src_codes, trg_coded, trg_codes, origin, created_at, src_text
FROM entries WHERE src_locale = ? AND trg_locale = ?`,
		srcLoc.String(), trgLoc.String())
	if err != nil {
		return nil, errs.IO("tm.Fuzzy", err)
	}
	defer rows.Close()

	text := src.Text()
	coded := src.CodedText()
	var matches []Match
	for rows.Next() {
		var (
			r        record
			plain    string
			created  int64
			origin   string
			identity string
		)
		if err := rows.Scan(&identity, &r.srcCoded, &r.srcCodes, &r.trgCoded, &r.trgCodes, &origin, &created, &plain); err != nil {
			return nil, errs.IO("tm.Fuzzy", err)
		}
		score := diffleverage.Similarity(text, plain)
		typ := resource.MatchFuzzy
		if r.srcCoded == coded {
			typ = resource.MatchExact
			score = 100
			if r.srcCodes != codes {
				score = exactCodeMismatch
			}
		} else if score >= 100 {
			// 纯文本相同而代码不同
			score = exactCodeMismatch
		}
		if score < threshold {
			continue
		}
		e, err := r.entry(identity, srcLoc, trgLoc, origin, created)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Entry: e, Score: score, Type: typ})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.IO("tm.Fuzzy", err)
	}
	sortMatches(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Lookup 先精确后模糊查询，结果用于译文复用步骤
func (m *Memory) Lookup(ctx context.Context, q leverage.Query) ([]leverage.Candidate, error) {
	matches, err := m.Exact(ctx, q.Source, q.SourceLocale, q.TargetLocale)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 && q.Threshold < 100 {
		if matches, err = m.Fuzzy(ctx, q.Source, q.SourceLocale, q.TargetLocale, q.Threshold, q.Limit); err != nil {
			return nil, err
		}
	}
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	out := make([]leverage.Candidate, 0, len(matches))
	for _, match := range matches {
		origin := match.Origin
		if origin == "" {
			origin = m.name
		}
		out = append(out, leverage.Candidate{
			Source: match.Source,
			Target: match.Target,
			Score:  match.Score,
			Type:   match.Type,
			Origin: origin,
		})
	}
	return out, nil
}

// Store 写入一对源文与译文
func (m *Memory) Store(ctx context.Context, source, target *resource.TextFragment, srcLoc, trgLoc resource.LocaleID, origin string) error {
	return m.Add(ctx, Entry{
		SourceLocale: srcLoc,
		TargetLocale: trgLoc,
		Source:       source,
		Target:       target,
		Origin:       origin,
	})
}

type record struct {
	srcCoded, srcCodes string
	trgCoded, trgCodes string
}

func (m *Memory) scan(rows *sql.Rows, srcLoc, trgLoc resource.LocaleID) (Entry, string, error) {
	var (
		r       record
		id      string
		origin  string
		created int64
	)
	if err := rows.Scan(&id, &r.srcCoded, &r.srcCodes, &r.trgCoded, &r.trgCodes, &origin, &created); err != nil {
		return Entry{}, "", errs.IO("tm.scan", err)
	}
	e, err := r.entry(id, srcLoc, trgLoc, origin, created)
	return e, r.srcCodes, err
}

func (r record) entry(id string, srcLoc, trgLoc resource.LocaleID, origin string, created int64) (Entry, error) {
	src, err := decodeFragment(r.srcCoded, r.srcCodes)
	if err != nil {
		return Entry{}, err
	}
	trg, err := decodeFragment(r.trgCoded, r.trgCodes)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:           id,
		SourceLocale: srcLoc,
		TargetLocale: trgLoc,
		Source:       src,
		Target:       trg,
		Origin:       origin,
		Created:      time.UnixMilli(created),
	}, nil
}

func encodeCodes(tf *resource.TextFragment) (string, error) {
	if tf == nil {
		return "", errs.BadInput("tm", "nil fragment", nil)
	}
	codes := tf.Codes()
	if codes == nil {
		codes = []*resource.Code{}
	}
	data, err := json.Marshal(codes)
	if err != nil {
		return "", errs.BadInput("tm", "cannot encode inline codes", err)
	}
	return string(data), nil
}

func decodeFragment(coded, codes string) (*resource.TextFragment, error) {
	var list []*resource.Code
	if err := json.Unmarshal([]byte(codes), &list); err != nil {
		return nil, errs.BadInput("tm", "corrupt inline codes", err)
	}
	tf := resource.NewTextFragment("")
	if err := tf.SetCodedText(coded, list); err != nil {
		return nil, errs.BadInput("tm", "stored text does not match its codes", err)
	}
	return tf, nil
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}

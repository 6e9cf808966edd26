package sqlgen

import (
	"fmt"
	"strings"
)

const rule = "-- ============================================================"

// Section は見出し付きの文のまとまりです。
type Section struct {
	Title      string
	Statements []Statement
}

// Script は 1 回の同期で適用する SQL 全体です。
// Setup はトランザクションの外で先に実行される冪等な基盤 SQL、Sections は 1 つのトランザクション内で実行されます。
type Script struct {
	Header   []string
	Setup    string
	Sections []Section
}

// Add は空でないセクションを追加します。
func (s *Script) Add(title string, stmts ...Statement) {
	s.Sections = append(s.Sections, Section{Title: title, Statements: stmts})
}

// Statements はトランザクション内の全文を順に返します。
func (s *Script) Statements() []Statement {
	var out []Statement
	for _, sec := range s.Sections {
		out = append(out, sec.Statements...)
	}
	return out
}

// Render はスクリプトを psql で実行できるテキストに描画します。
func (s *Script) Render() (string, error) {
	var b strings.Builder

	if len(s.Header) > 0 {
		b.WriteString(rule + "\n")
		for _, line := range s.Header {
			b.WriteString("-- " + line + "\n")
		}
		b.WriteString(rule + "\n\n")
	}

	if setup := strings.TrimSpace(s.Setup); setup != "" {
		b.WriteString(setup + "\n\n")
	}

	b.WriteString("BEGIN;\n\n")
	for _, sec := range s.Sections {
		if sec.Title != "" {
			fmt.Fprintf(&b, "-- ========== %s ==========\n", sec.Title)
		}
		for _, st := range sec.Statements {
			sql, err := st.Inline()
			if err != nil {
				return "", fmt.Errorf("section %s: %w", sec.Title, err)
			}
			b.WriteString(sql + ";\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("COMMIT;\n")

	return b.String(), nil
}

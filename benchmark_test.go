package qython

import (
	"strings"
	"testing"

	"github.com/qython-lang/qython/internal/config"
	"github.com/qython-lang/qython/internal/lexer"
)

const benchSource = `def fib_pair(n):
    a = 0
    b = 1
    do n times:
        t = a + b
        a = b
        b = t
    return [a, b]

def nmsq(x):
    converge on guess starting from x / 2:
        new_guess = (guess + x / guess) / 2
        guess = new_guess
    return guess

def total(xs):
    return reduce(add, xs, 0)

def add(a, b):
    return a + b
`

// Lexer throughput
func BenchmarkLexer(b *testing.B) {
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		l := lexer.New(benchSource)

		tokenCount := 0
		for {
			token := l.NextToken()
			tokenCount++
			if token.Type == lexer.TokenEOF {
				break
			}
			if token.Type == lexer.TokenError {
				b.Fatal("Lexer error:", token.Literal)
			}
		}

		if i == 0 {
			b.ReportMetric(float64(tokenCount), "tokens/op")
		}
	}
}

func BenchmarkParse(b *testing.B) {
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, diag := Parse("bench.qy", benchSource); diag != nil {
			b.Fatal("Parse error:", diag)
		}
	}
}

func BenchmarkCompile(b *testing.B) {
	cfg := config.Default()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, diag := Compile(benchSource, cfg); diag != nil {
			b.Fatal("Compile error:", diag)
		}
	}
}

// Many small functions, as a generated library would have.
func BenchmarkCompileWide(b *testing.B) {
	var src strings.Builder
	for i := 0; i < 200; i++ {
		src.WriteString(strings.ReplaceAll(benchSource, "def ", "def f"+string(rune('a'+i%26))+strings.Repeat("x", i/26)+"_"))
		src.WriteString("\n")
	}
	cfg := config.Default()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, diag := Compile(src.String(), cfg); diag != nil {
			b.Fatal("Compile error:", diag)
		}
	}
}

func BenchmarkConcurrentCompile(b *testing.B) {
	cfg := config.Default()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, diag := Compile(benchSource, cfg); diag != nil {
				b.Error("Compile error:", diag)
				return
			}
		}
	})
}

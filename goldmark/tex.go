package goldmark

import (
	"regexp"
	"strings"
)

var (
	texGroupCmd = regexp.MustCompile(`\\(?:text|mathrm|mathbf|mathit|mathsf|mathtt|operatorname|textbf|textit)\{([^{}]*)\}`)
	texFrac     = regexp.MustCompile(`\\[dt]?frac\{([^{}]*)\}\{([^{}]*)\}`)
	texSqrt     = regexp.MustCompile(`\\sqrt\{([^{}]*)\}`)
	texScript   = regexp.MustCompile(`([\^_])(\{[^{}]*\}|\\[a-zA-Z]+|.)`)
	texSpace    = regexp.MustCompile(`\s+`)
)

// texSymbols lists longer commands before their prefixes since the
// replacer prefers earlier arguments at the same position.
var texSymbols = strings.NewReplacer(
	`\leftrightarrow`, "↔", `\leftarrow`, "←", `\left`, "", `\leq`, "≤", `\le`, "≤",
	`\rightarrow`, "→", `\right`, "",
	`\Leftrightarrow`, "⇔", `\Leftarrow`, "⇐", `\Rightarrow`, "⇒",
	`\geq`, "≥", `\ge`, "≥", `\neq`, "≠", `\neg`, "¬", `\ne`, "≠",
	`\infty`, "∞", `\int`, "∫", `\in`, "∈", `\notin`, "∉",
	`\cdots`, "⋯", `\cdot`, "·", `\ldots`, "…", `\dots`, "…",
	`\subseteq`, "⊆", `\subset`, "⊂", `\supseteq`, "⊇", `\supset`, "⊃",
	`\,`, " ", `\;`, " ", `\:`, " ", `\!`, "", `\qquad`, "    ", `\quad`, "  ",
	`\alpha`, "α", `\beta`, "β", `\gamma`, "γ", `\delta`, "δ", `\epsilon`, "ε", `\varepsilon`, "ε",
	`\zeta`, "ζ", `\eta`, "η", `\theta`, "θ", `\iota`, "ι", `\kappa`, "κ", `\lambda`, "λ", `\mu`, "μ",
	`\nu`, "ν", `\xi`, "ξ", `\pi`, "π", `\rho`, "ρ", `\sigma`, "σ", `\tau`, "τ", `\phi`, "φ",
	`\varphi`, "φ", `\chi`, "χ", `\psi`, "ψ", `\omega`, "ω",
	`\Gamma`, "Γ", `\Delta`, "Δ", `\Theta`, "Θ", `\Lambda`, "Λ", `\Pi`, "Π", `\Sigma`, "Σ",
	`\Phi`, "Φ", `\Psi`, "Ψ", `\Omega`, "Ω",
	`\times`, "×", `\div`, "÷", `\pm`, "±", `\mp`, "∓",
	`\approx`, "≈", `\equiv`, "≡", `\sim`, "∼", `\propto`, "∝",
	`\sum`, "∑", `\prod`, "∏", `\oint`, "∮", `\partial`, "∂", `\nabla`, "∇",
	`\to`, "→", `\mapsto`, "↦", `\implies`, "⟹", `\iff`, "⟺",
	`\cup`, "∪", `\cap`, "∩", `\emptyset`, "∅", `\forall`, "∀", `\exists`, "∃",
	`\land`, "∧", `\lor`, "∨", `\wedge`, "∧", `\vee`, "∨", `\circ`, "∘", `\degree`, "°",
	`\sin`, "sin", `\cos`, "cos", `\tan`, "tan", `\log`, "log", `\ln`, "ln", `\exp`, "exp",
	`\lim`, "lim", `\max`, "max", `\min`, "min",
	`\{`, "{", `\}`, "}", `\%`, "%", `\$`, "$", `\\`, " ",
)

var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴', '5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
	'+': '⁺', '-': '⁻', '=': '⁼', '(': '⁽', ')': '⁾', 'n': 'ⁿ', 'i': 'ⁱ', 'x': 'ˣ', 'y': 'ʸ',
	'a': 'ᵃ', 'b': 'ᵇ', 'c': 'ᶜ', 'd': 'ᵈ', 'e': 'ᵉ', 'k': 'ᵏ', 'm': 'ᵐ', 'o': 'ᵒ', 'p': 'ᵖ', 't': 'ᵗ',
	'T': 'ᵀ',
}

var subscripts = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄', '5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
	'+': '₊', '-': '₋', '=': '₌', '(': '₍', ')': '₎', 'a': 'ₐ', 'e': 'ₑ', 'i': 'ᵢ', 'j': 'ⱼ', 'k': 'ₖ',
	'n': 'ₙ', 'm': 'ₘ', 'o': 'ₒ', 'x': 'ₓ', 't': 'ₜ',
}

// TeX converts a TeX math expression to a single line of Unicode text.
// Unsupported commands are kept verbatim.
func TeX(src string) string {
	s := src
	for {
		next := texGroupCmd.ReplaceAllString(s, "$1")
		next = texFrac.ReplaceAllStringFunc(next, func(m string) string {
			g := texFrac.FindStringSubmatch(m)
			return group(g[1]) + "/" + group(g[2])
		})
		next = texSqrt.ReplaceAllString(next, "√($1)")
		if next == s {
			break
		}
		s = next
	}
	s = texSymbols.Replace(s)
	s = strings.ReplaceAll(s, `\sqrt`, "√")
	s = texScript.ReplaceAllStringFunc(s, script)
	s = strings.NewReplacer("{", "", "}", "").Replace(s)
	return strings.TrimSpace(texSpace.ReplaceAllString(s, " "))
}

// group parenthesises a fraction operand longer than one rune.
func group(s string) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= 1 {
		return s
	}
	return "(" + s + ")"
}

// script converts a ^ or _ run to Unicode when every rune has a raised or
// lowered form, and to ^(…) or _(…) otherwise.
func script(m string) string {
	table := superscripts
	if m[0] == '_' {
		table = subscripts
	}
	body := strings.TrimSuffix(strings.TrimPrefix(m[1:], "{"), "}")
	var b strings.Builder
	for _, r := range body {
		mapped, ok := table[r]
		if !ok {
			if len([]rune(body)) == 1 {
				return m[:1] + body
			}
			return m[:1] + "(" + body + ")"
		}
		b.WriteRune(mapped)
	}
	return b.String()
}

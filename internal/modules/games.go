package modules

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/snaiperskaya/snaibot/internal/calc"
)

const (
	calcMaxPowers   = 2
	calcMaxResult   = 30
	calcTooComplex  = "ERROR - Formula too complex"
	calcCheckFormat = "ERROR - Please check your formula..."

	maxDice        = 100
	maxRollsLength = 400
)

// calculatorModule evaluates arithmetic.
type calculatorModule struct{}

func (calculatorModule) Help() []string { return []string{"*calc <expression>"} }

func (calculatorModule) HandleMessage(ctx context.Context, b Bot, m *Message) {
	args, ok := command(m, "calc")
	if !ok {
		return
	}
	commandsHandled.WithLabelValues("calculator").Inc()
	reply(b, m, calculate(args))
}

func calculate(args string) string {
	expr := strings.ReplaceAll(args, "^", "**")
	for _, c := range expr {
		if !(c >= '0' && c <= '9') && !strings.ContainsRune("+-()*/ .", c) {
			return calcTooComplex
		}
	}
	if strings.Count(expr, "**") > calcMaxPowers {
		return calcTooComplex
	}

	v, err := calc.Eval(expr)
	switch {
	case errors.Is(err, calc.ErrTooComplex):
		return calcTooComplex
	case err != nil:
		return calcCheckFormat
	}
	out := v.String()
	if len(out) > calcMaxResult {
		out = out[:calcMaxResult] + "... char limit exceeded ..."
	}
	return "The answer should be " + out
}

// diceModule rolls NdM.
type diceModule struct {
	rand *rand.Rand
}

func (d *diceModule) Help() []string { return []string{"*dice <#d#>"} }

func (d *diceModule) HandleMessage(ctx context.Context, b Bot, m *Message) {
	args, ok := command(m, "dice")
	if !ok {
		return
	}
	commandsHandled.WithLabelValues("dice").Inc()
	reply(b, m, d.roll(args))
}

func (d *diceModule) roll(args string) string {
	parts := strings.Split(strings.ToLower(args), "d")
	if len(parts) != 2 {
		return "Error: Invalid Format (#d# required)"
	}
	if !isDigits(parts[0]) || !isDigits(parts[1]) {
		return "Error: Non Digit Dice Values (#d# required)"
	}
	dice, err1 := strconv.Atoi(parts[0])
	sides, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || dice < 1 || dice > maxDice || sides < 2 {
		return "Error: Invalid numbers. Please try again."
	}

	total := 0
	rolls := make([]string, dice)
	for i := range rolls {
		n := d.rand.IntN(sides) + 1
		total += n
		rolls[i] = strconv.Itoa(n)
	}
	listed := "[" + strings.Join(rolls, ", ") + "]"
	if len(listed) > maxRollsLength {
		listed = listed[:maxRollsLength] + "...]"
	}
	return "Total value rolled was " + strconv.Itoa(total) + " - Dice Rolled: " + listed
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

package balancelisten

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/egaotan/solana-revertable/dingsdk"
	"github.com/egaotan/solana-revertable/program"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type BalanceOracle interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
}

type Notifier interface {
	Notify(notify *dingsdk.DingNotify) (*dingsdk.DingResult, error)
}

// BalanceListen polls account balances and sends a notification whenever
// one of them changes.
type BalanceListen struct {
	ctx      context.Context
	wg       sync.WaitGroup
	oracle   BalanceOracle
	accounts []solana.PublicKey
	balances []uint64
	known    bool
	interval time.Duration
	dsdk     Notifier
	logger   *logrus.Entry
}

func NewBalanceListen(ctx context.Context, oracle BalanceOracle, accounts []solana.PublicKey, interval time.Duration, dsdk Notifier, logger *logrus.Entry) *BalanceListen {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	bl := &BalanceListen{
		ctx:      ctx,
		oracle:   oracle,
		accounts: accounts,
		balances: make([]uint64, len(accounts)),
		interval: interval,
		dsdk:     dsdk,
		logger:   logger,
	}
	return bl
}

func (bl *BalanceListen) Start() {
	bl.wg.Add(1)
	go bl.AccountBalance()
}

func (bl *BalanceListen) Wait() {
	bl.wg.Wait()
}

func (bl *BalanceListen) AccountBalance() {
	defer bl.wg.Done()
	timer := time.NewTicker(bl.interval)
	defer timer.Stop()
	bl.check()
	for {
		select {
		case <-timer.C:
			bl.check()
		case <-bl.ctx.Done():
			return
		}
	}
}

func (bl *BalanceListen) check() {
	balances := make([]uint64, 0, len(bl.accounts))
	for _, account := range bl.accounts {
		ctx, cancel := context.WithTimeout(bl.ctx, bl.interval)
		balance, err := bl.oracle.GetBalance(ctx, account)
		cancel()
		if err != nil {
			bl.logger.Warnf("balance of %s err: %s", account, err)
			return
		}
		balances = append(balances, balance)
	}
	bl.notify(balances)
}

func (bl *BalanceListen) notify(balances []uint64) {
	update := !bl.known
	for i := range balances {
		if balances[i] != bl.balances[i] {
			update = true
			break
		}
	}
	if !update {
		return
	}
	content := Describe(bl.accounts, bl.balances, balances, bl.known, time.Now())
	bl.logger.Info(content)
	if _, err := bl.dsdk.Notify(dingsdk.Text(content)); err != nil {
		bl.logger.Warnf("notify err: %s", err)
	}
	copy(bl.balances, balances)
	bl.known = true
}

func native(lamports uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(lamports)).Div(decimal.NewFromInt(program.LamportsPerNative))
}

// Describe renders balance changes in native units. Without a previous
// reading the difference is zero.
func Describe(accounts []solana.PublicKey, old []uint64, cur []uint64, known bool, now time.Time) string {
	var b strings.Builder
	b.WriteString("operator balance update:\n")
	for i := range cur {
		oldBalance := native(old[i])
		newBalance := native(cur[i])
		diff := decimal.NewFromInt(0)
		if known {
			diff = newBalance.Sub(oldBalance)
		}
		fmt.Fprintf(&b, "%s: %s -> %s (%s);\n", accounts[i],
			oldBalance.StringFixed(9), newBalance.StringFixed(9), diff.StringFixed(9))
	}
	fmt.Fprintf(&b, "time: %s;", now.Format("2006-01-02 15:04:05"))
	return b.String()
}

package lifecycle

// State is the lifecycle state of an intended or held position.
// The numeric codes follow the original strategy's convention:
// 1x = 建仓前, 2x = 下单, 3x = 持仓, 4x = 平仓.
// The machine holds no instrument identity; callers own the mapping from
// instrument to current state and apply the pure transition functions.
type State int

const (
	NewToOpen     State = 11 // 待开仓
	NewAtBottom   State = 12 // 触底
	NewToBuy      State = 13 // 触底反弹待买入
	Buy           State = 21 // 下单待买入
	CloseToBuy    State = 22 // 平仓后再买入
	Open          State = 41 // 成功开仓
	CloseAtTarget State = 42 // 达到目标价卖出
	CloseAtHigh   State = 43 // 逃顶卖出
	HoldToSell    State = 31 // 持仓待卖
	HoldAtHigh    State = 32 // 触顶
	HighToSell    State = 33 // 逃顶待卖
	HoldAtMaxDays State = 35 // 持仓超过最大天数
)

// String returns a readable name for logging
func (s State) String() string {
	switch s {
	case NewToOpen:
		return "NEW_TO_OPEN"
	case NewAtBottom:
		return "NEW_AT_BOTTOM"
	case NewToBuy:
		return "NEW_TO_BUY"
	case Buy:
		return "BUY"
	case CloseToBuy:
		return "CLOSE_TO_BUY"
	case Open:
		return "OPEN"
	case CloseAtTarget:
		return "CLOSE_AT_TARGET"
	case CloseAtHigh:
		return "CLOSE_AT_HIGH"
	case HoldToSell:
		return "HOLD_TO_SELL"
	case HoldAtHigh:
		return "HOLD_AT_HIGH"
	case HighToSell:
		return "HIGH_TO_SELL"
	case HoldAtMaxDays:
		return "HOLD_AT_MAX_DAYS"
	default:
		return "UNKNOWN"
	}
}

// advanceTable: 正常前进路径
var advanceTable = map[State]State{
	NewToOpen:     NewAtBottom,
	NewAtBottom:   Buy,
	Buy:           Open,
	Open:          HoldToSell,
	CloseAtTarget: CloseToBuy,
	CloseAtHigh:   CloseToBuy,
	HoldToSell:    HoldAtHigh,
	HoldAtHigh:    HighToSell,
	HighToSell:    CloseToBuy,
	CloseToBuy:    Open,
	HoldAtMaxDays: NewToOpen, // 强制平仓后整体回收
}

// retreatTable: 失败/回退路径
var retreatTable = map[State]State{
	NewAtBottom:   NewToOpen,
	Buy:           NewToOpen,
	HoldAtHigh:    HoldToSell,
	HighToSell:    HoldToSell,
	CloseToBuy:    CloseAtHigh,
	HoldAtMaxDays: HoldAtMaxDays,
	HoldToSell:    HoldToSell,
}

// forceExitTable: 止损/止盈/超期的终止路径
var forceExitTable = map[State]State{
	HoldAtHigh:    CloseAtTarget,
	HighToSell:    CloseAtHigh,
	Buy:           Open,
	CloseToBuy:    Open,
	HoldAtMaxDays: NewToOpen,
}

// Advance returns the normal forward transition for a state.
// ok is false when the state has no forward edge; the caller decides
// whether to hold state or treat that as an anomaly.
func Advance(s State) (State, bool) {
	next, ok := advanceTable[s]
	return next, ok
}

// Retreat returns the back-off transition for a state.
func Retreat(s State) (State, bool) {
	next, ok := retreatTable[s]
	return next, ok
}

// ForceExit returns the terminal/override transition for a state, used for
// stop-loss, max-holding-period and take-profit events.
func ForceExit(s State) (State, bool) {
	next, ok := forceExitTable[s]
	return next, ok
}

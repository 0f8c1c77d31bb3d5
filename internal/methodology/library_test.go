package methodology_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueprintmaster/blueprint/internal/methodology"
)

func TestLoad_EmbeddedCorpusParses(t *testing.T) {
	lib, err := methodology.Load()
	require.NoError(t, err)

	vendors := lib.Vendors()
	require.Len(t, vendors, 3)
	assert.Equal(t, "huawei", vendors[0].Key)
	assert.Equal(t, "general", vendors[1].Key)
	assert.Equal(t, "advertising", vendors[2].Key)

	for _, v := range vendors {
		assert.NotEmpty(t, v.Label)
		require.NotEmpty(t, v.Scenarios, "vendor %s has no scenarios", v.Key)
		for _, s := range v.Scenarios {
			assert.NotEmpty(t, s.Label, "%s:%s", v.Key, s.Key)
			assert.NotEmpty(t, s.Content, "%s:%s", v.Key, s.Key)
		}
	}
}

func TestResolve_CompositeKey(t *testing.T) {
	lib := methodology.Default()

	text := lib.Resolve([]string{"huawei:strategy"}, nil)

	assert.Contains(t, text, "【华为 (Huawei) - 战略规划层 (Strategy - BLM/BEM)】")
	assert.Contains(t, text, "BLM (Business Leadership Model")
	assert.NotContains(t, text, "IPD", "unselected scenarios must not leak in")
}

func TestResolve_BareVendorIncludesAllScenarios(t *testing.T) {
	lib := methodology.Default()

	text := lib.Resolve([]string{"general"}, nil)

	assert.Contains(t, text, "【通用/行业标准 (General) (全场景)】")
	assert.Contains(t, text, "TOGAF")
	assert.Contains(t, text, "ITIL")
	assert.Contains(t, text, "PMP/PMBOK")
}

func TestResolve_UnknownKeysFallBackToStrategyDefault(t *testing.T) {
	lib := methodology.Default()

	// Unknown vendor plus an unknown scenario of a known vendor resolve to
	// nothing, which engages the strategy-only default fallback instead of
	// returning an empty block.
	text := lib.Resolve([]string{"nonexistent_vendor", "huawei:nope"}, nil)

	assert.NotEmpty(t, text)
	assert.Contains(t, text, "战略规划层")
	assert.NotContains(t, text, "ITR", "fallback must not include non-strategy scenarios")
}

func TestResolve_CustomItemsSuppressFallback(t *testing.T) {
	lib := methodology.Default()

	text := lib.Resolve(nil, []string{"《孙子兵法》"})

	assert.Contains(t, text, "【部门默认参考书籍/理论】")
	assert.Contains(t, text, "📖 **《孙子兵法》**")
	assert.NotContains(t, text, "BLM", "custom-only selections must not pull in built-ins")
}

func TestResolve_CustomItemsAppendedLast(t *testing.T) {
	lib := methodology.Default()

	text := lib.Resolve([]string{"huawei:strategy"}, []string{"《定位》", "  ", "《增长黑客》"})

	builtinAt := strings.Index(text, "战略规划层")
	customAt := strings.Index(text, "部门默认参考书籍")
	require.Greater(t, builtinAt, -1)
	require.Greater(t, customAt, -1)
	assert.Greater(t, customAt, builtinAt, "custom items must come after built-ins")

	assert.Contains(t, text, "📖 **《定位》**")
	assert.Contains(t, text, "📖 **《增长黑客》**")
	assert.Equal(t, 2, strings.Count(text, "📖"), "blank custom items are dropped")
}

func TestResolve_DuplicatesTolerated(t *testing.T) {
	lib := methodology.Default()

	once := lib.Resolve([]string{"huawei:strategy"}, nil)
	twice := lib.Resolve([]string{"huawei:strategy", "huawei:strategy"}, nil)

	assert.GreaterOrEqual(t, strings.Count(twice, "战略规划层"), strings.Count(once, "战略规划层"))
}

func TestResolve_OrderStable(t *testing.T) {
	lib := methodology.Default()

	sel := []string{"huawei:strategy", "advertising", "general:it_management"}
	custom := []string{"《华为基本法》"}

	first := lib.Resolve(sel, custom)
	second := lib.Resolve(sel, custom)
	assert.Equal(t, first, second, "selection assembly must be byte-identical across calls")
}

func TestResolve_BudgetEnforced(t *testing.T) {
	lib := methodology.Default()

	// Every vendor in full plus customs comfortably exceeds the budget.
	text := lib.Resolve([]string{"huawei", "general", "advertising", "huawei", "general"},
		[]string{"《定位》", "《商战》"})

	assert.LessOrEqual(t, utf8.RuneCountInString(text), methodology.SelectionBudget)
}

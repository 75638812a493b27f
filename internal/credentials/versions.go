package credentials

import (
	"slices"

	"github.com/samber/lo"
)

// Списки правдоподобных версий, из которых берутся сгенерированные значения.
// Заполняются один раз и дальше только читаются.
var (
	systemVersions = []string{"Windows 10", "Windows 11"}

	appVersions = []string{
		"5.6.2", "5.6.1", "5.6.0", "5.5.5", "5.5.4", "5.5.2", "5.5.1", "5.5.0",
		"5.3.1", "5.3.0", "5.2.3", "5.2.2",
	}
)

const appVersionSuffix = " x64"

func SystemVersions() []string { return slices.Clone(systemVersions) }

func AppVersions() []string { return slices.Clone(appVersions) }

func SampleSystemVersion() string {
	return lo.Sample(systemVersions)
}

// SampleAppVersion возвращает версию десктоп-клиента вида "5.6.2 x64"
func SampleAppVersion() string {
	return lo.Sample(appVersions) + appVersionSuffix
}

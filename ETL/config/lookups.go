package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Region описывает континент и регион страны
type Region struct {
	Continent string `toml:"continente"`
	Region    string `toml:"regiao"`
}

// DiscountBand описывает статическую полосу скидки (проценты)
type DiscountBand struct {
	Name       string  `toml:"faixa"`
	MinPercent float64 `toml:"percentual_min"`
	MaxPercent float64 `toml:"percentual_max"`
}

// PriceTiers пороги категории цены продукта
type PriceTiers struct {
	LowBelow     float64 `toml:"low_below"`
	MediumAtMost float64 `toml:"medium_at_most"`
}

// VolumeTiers пороги потенциала объема сегмента (сумма проданных единиц)
type VolumeTiers struct {
	HighAbove   float64 `toml:"high_above"`
	MediumAbove float64 `toml:"medium_above"`
}

// Lookups содержит справочники, которые подставляются в построители измерений
type Lookups struct {
	UnknownLabel  string            `toml:"unknown_label"`
	Regions       map[string]Region `toml:"regions"`
	Holidays      []string          `toml:"holidays"`
	DiscountBands []DiscountBand    `toml:"discount_bands"`
	PriceTiers    PriceTiers        `toml:"price_tiers"`
	VolumeTiers   VolumeTiers       `toml:"volume_tiers"`
}

// DefaultLookups возвращает справочники по умолчанию.
// Праздничный календарь покрывает только 2013 и 2014 годы.
func DefaultLookups() Lookups {
	return Lookups{
		UnknownLabel: "Desconhecido",
		Regions: map[string]Region{
			"United States of America": {Continent: "América", Region: "América do Norte"},
			"Canada":                   {Continent: "América", Region: "América do Norte"},
			"France":                   {Continent: "Europa", Region: "Europa Ocidental"},
			"Germany":                  {Continent: "Europa", Region: "Europa Ocidental"},
			"Mexico":                   {Continent: "América", Region: "América Latina"},
		},
		Holidays: []string{
			"2013-01-01", "2013-01-21", "2013-02-18", "2013-05-27", "2013-07-04",
			"2013-09-02", "2013-10-14", "2013-11-11", "2013-11-28", "2013-12-25",
			"2014-01-01", "2014-01-20", "2014-02-17", "2014-05-26", "2014-07-04",
			"2014-09-01", "2014-10-13", "2014-11-11", "2014-11-27", "2014-12-25",
		},
		DiscountBands: []DiscountBand{
			{Name: "None", MinPercent: 0, MaxPercent: 0},
			{Name: "Low", MinPercent: 0.01, MaxPercent: 5},
			{Name: "Medium", MinPercent: 5.01, MaxPercent: 10},
			{Name: "High", MinPercent: 10.01, MaxPercent: 20},
		},
		PriceTiers:  PriceTiers{LowBelow: 100, MediumAtMost: 200},
		VolumeTiers: VolumeTiers{HighAbove: 200000, MediumAbove: 100000},
	}
}

// LoadLookups читает справочники из TOML-файла поверх значений по умолчанию.
// Пустой путь или отсутствующий файл дают справочники по умолчанию.
func LoadLookups(path string) (Lookups, error) {
	lookups := DefaultLookups()
	if path == "" {
		return lookups, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return lookups, nil
	}
	if err != nil {
		return lookups, fmt.Errorf("ошибка чтения справочников %s: %w", path, err)
	}

	var fromFile Lookups
	if err := toml.Unmarshal(data, &fromFile); err != nil {
		return lookups, fmt.Errorf("ошибка разбора справочников %s: %w", path, err)
	}

	if fromFile.UnknownLabel != "" {
		lookups.UnknownLabel = fromFile.UnknownLabel
	}
	for country, region := range fromFile.Regions {
		lookups.Regions[country] = region
	}
	if len(fromFile.Holidays) > 0 {
		lookups.Holidays = fromFile.Holidays
	}
	if len(fromFile.DiscountBands) > 0 {
		lookups.DiscountBands = fromFile.DiscountBands
	}
	if fromFile.PriceTiers != (PriceTiers{}) {
		lookups.PriceTiers = fromFile.PriceTiers
	}
	if fromFile.VolumeTiers != (VolumeTiers{}) {
		lookups.VolumeTiers = fromFile.VolumeTiers
	}

	return lookups, nil
}

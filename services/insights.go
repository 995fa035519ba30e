package services

import (
	"fmt"
	"sort"
	"strings"

	"airbnb-ingest/models"
	"airbnb-ingest/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes the post-ingest analytics over the stored listings.
func (s *InsightService) Generate(listings []*models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByCategory: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var priced []*models.Listing
	var rated []*models.Listing

	for _, l := range listings {
		if l.PriceAmount != nil && *l.PriceAmount > 0 {
			priced = append(priced, l)
		}
		if l.RatingValue != nil && *l.RatingValue > 0 {
			rated = append(rated, l)
		}
		if l.Category != "" {
			report.ListingsByCategory[l.Category]++
		}
	}

	report.PricedListings = len(priced)

	if len(priced) > 0 {
		report.MinPrice = *priced[0].PriceAmount
		report.MaxPrice = *priced[0].PriceAmount
		var total float64
		for _, l := range priced {
			p := *l.PriceAmount
			total += p
			if p < report.MinPrice {
				report.MinPrice = p
			}
			if p >= report.MaxPrice {
				report.MaxPrice = p
				report.MostExpensive = l
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	// Top 5 by rating
	sort.Slice(rated, func(i, j int) bool {
		return *rated[i].RatingValue > *rated[j].RatingValue
	})
	if len(rated) > 5 {
		report.TopRated = rated[:5]
	} else {
		report.TopRated = rated
	}

	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 INGESTED LISTING INSIGHTS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Listings stored     : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Printf("  Listings with price : \033[1m%d\033[0m\n", r.PricedListings)
	fmt.Println()

	// Price Stats
	fmt.Printf("\033[1;33m  Price Statistics\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Printf("  Average price : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		fmt.Printf("  Minimum price : \033[1;32m%.2f\033[0m\n", r.MinPrice)
		fmt.Printf("  Maximum price : \033[1;32m%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	// Most Expensive
	if r.MostExpensive != nil {
		fmt.Printf("\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(displayName(r.MostExpensive), 50))
		fmt.Printf("  Room ID : %d\n", r.MostExpensive.RoomID)
		fmt.Printf("  Price   : \033[1;31m%s%.2f\033[0m\n",
			r.MostExpensive.PriceCurrencySymbol, *r.MostExpensive.PriceAmount)
		fmt.Println()
	}

	// Top rated
	fmt.Printf("\033[1;33m  Top 5 Highest Rated Listings\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Printf("  No rated listings found\n")
	} else {
		for i, l := range r.TopRated {
			fmt.Printf("  \033[1m%d.\033[0m %-40s \033[1;32m%.2f ★\033[0m\n",
				i+1, truncate(displayName(l), 38), *l.RatingValue)
		}
	}
	fmt.Println()

	// Listings by category
	fmt.Printf("\033[1;33m  Listings by Category\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ListingsByCategory) == 0 {
		fmt.Printf("  No category data\n")
	} else {
		type catCount struct {
			cat   string
			count int
		}
		var cats []catCount
		for cat, cnt := range r.ListingsByCategory {
			cats = append(cats, catCount{cat, cnt})
		}
		sort.Slice(cats, func(i, j int) bool {
			return cats[i].count > cats[j].count
		})
		for _, c := range cats {
			bar := strings.Repeat("█", c.count)
			fmt.Printf("  %-30s %s (%d)\n", truncate(c.cat, 28), bar, c.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func displayName(l *models.Listing) string {
	if l.Name != "" {
		return l.Name
	}
	if l.Title != "" {
		return l.Title
	}
	return fmt.Sprintf("room %d", l.RoomID)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

package enrich

import (
	"context"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cast"

	"titlevault/internal/domain"
	"titlevault/internal/normalize"
	"titlevault/internal/providers/omdb"
	"titlevault/internal/providers/tmdb"
	"titlevault/internal/providers/tvmaze"
)

const (
	animeConfidence    = 0.9
	scheduleConfidence = 0.95
	catalogConfidence  = 0.95
	catalogCastLimit   = 30
)

// baseStage fills descriptive fields the classifier depends on from the
// by-id detail service.
func (p *Pipeline) baseStage(ctx context.Context, record domain.CanonicalRecord, _ classification, _ domain.Caller) StageResult {
	id := strings.TrimSpace(record.UniversalID)
	if p.base == nil || id == "" {
		return skipped()
	}
	if record.Genre != "" && record.Country != "" && record.Language != "" {
		return skipped()
	}
	detail, ok := p.base.Detail(ctx, id)
	if !ok {
		return StageResult{}
	}
	return contributed([]string{"base"}, func(out *domain.CanonicalRecord) {
		fillString(&out.Title, detail.Title)
		fillString(&out.Year, normalize.YearOf(detail.Year))
		fillString(&out.Genre, detail.Genre)
		fillString(&out.Country, detail.Country)
		fillString(&out.Language, detail.Language)
		fillString(&out.Runtime, detail.Runtime)
		fillString(&out.Plot, detail.Plot)
		fillString(&out.Poster, detail.Poster)
		if len(out.Ratings) == 0 {
			out.Ratings = baseRatings(detail.Ratings)
		}
		if len(out.Meta.Director) == 0 {
			out.Meta.Director = splitList(omdb.Value(detail.Director))
		}
		if len(out.Meta.Genres) == 0 {
			out.Meta.Genres = splitList(omdb.Value(detail.Genre))
		}
	})
}

func (p *Pipeline) animeStage(ctx context.Context, record domain.CanonicalRecord, class classification, caller domain.Caller) StageResult {
	if p.anime == nil || !class.animation || record.Meta.Anime != nil {
		return skipped()
	}
	payload, source, ok := p.resolveRegistry(ctx, p.anime, record, caller)
	if !ok {
		return StageResult{}
	}
	info := &domain.AnimeInfo{
		MALID:          cast.ToInt(payload["mal_id"]),
		Studios:        namesOf(payload["studios"]),
		Confidence:     animeConfidence,
		RegistrySource: source,
	}
	if score, ok := normalize.Number(payload["score"]); ok {
		info.Score = score
	}
	return contributed([]string{"anime"}, func(out *domain.CanonicalRecord) {
		out.Meta.Anime = info
	})
}

// scheduleStage looks the show up, then fetches episodes and cast
// concurrently.
func (p *Pipeline) scheduleStage(ctx context.Context, record domain.CanonicalRecord, class classification, _ domain.Caller) StageResult {
	id := strings.TrimSpace(record.UniversalID)
	if p.schedule == nil || !class.series || id == "" || record.Meta.Schedule != nil {
		return skipped()
	}
	show, ok := p.schedule.Lookup(ctx, id)
	if !ok || show.ID == 0 {
		return StageResult{}
	}

	var (
		episodes []tvmaze.Episode
		credits  []tvmaze.CastCredit
	)
	tasks := pool.New().WithMaxGoroutines(2)
	tasks.Go(func() {
		episodes, _ = p.schedule.Episodes(ctx, show.ID)
	})
	tasks.Go(func() {
		credits, _ = p.schedule.Cast(ctx, show.ID)
	})
	tasks.Wait()

	info := &domain.ScheduleInfo{
		ShowID:     show.ID,
		Episodes:   scheduleEpisodes(episodes),
		Cast:       scheduleCast(credits),
		Confidence: scheduleConfidence,
	}
	return contributed([]string{"schedule"}, func(out *domain.CanonicalRecord) {
		out.Meta.Schedule = info
	})
}

func (p *Pipeline) regionalStage(ctx context.Context, record domain.CanonicalRecord, class classification, caller domain.Caller) StageResult {
	if p.regional == nil || !class.asian {
		return skipped()
	}
	payload, source, ok := p.resolveRegistry(ctx, p.regional, record, caller)
	if !ok {
		return StageResult{}
	}
	info := &domain.RegionalInfo{
		SourceID:       normalize.ID(firstOf(payload, "id", "slug")),
		Title:          cast.ToString(firstOf(payload, "title", "name")),
		Country:        cast.ToString(payload["country"]),
		Episodes:       cast.ToInt(payload["episodes"]),
		Synopsis:       normalize.StripHTML(cast.ToString(firstOf(payload, "synopsis", "description"))),
		Genres:         stringList(payload["genres"]),
		Payload:        payload,
		RegistrySource: source,
	}
	if rating, ok := normalize.Number(firstOf(payload, "rating", "score")); ok {
		info.Rating = rating
	}
	return contributed([]string{"regional"}, func(out *domain.CanonicalRecord) {
		out.Meta.Regional = info
	})
}

// catalogStage resolves the catalog id when needed, then fetches credits,
// details and images concurrently. Its cast replaces any earlier cast.
func (p *Pipeline) catalogStage(ctx context.Context, record domain.CanonicalRecord, class classification, _ domain.Caller) StageResult {
	if p.catalog == nil {
		return skipped()
	}
	catalogID := ""
	if record.Catalog != nil {
		catalogID = strings.TrimSpace(record.Catalog.ID)
	}
	imdbID := strings.TrimSpace(record.UniversalID)
	if catalogID == "" && imdbID == "" {
		return skipped()
	}
	if catalogID == "" {
		found, ok := p.catalog.Find(ctx, imdbID, class.series)
		if !ok || found == "" {
			return StageResult{}
		}
		catalogID = found
	}

	var (
		credits    tmdb.Credits
		details    tmdb.Details
		images     tmdb.Images
		hasCredits bool
		hasDetails bool
		hasImages  bool
	)
	tasks := pool.New().WithMaxGoroutines(3)
	tasks.Go(func() {
		credits, hasCredits = p.catalog.Credits(ctx, catalogID, class.series)
	})
	tasks.Go(func() {
		details, hasDetails = p.catalog.Details(ctx, catalogID, class.series)
	})
	tasks.Go(func() {
		images, hasImages = p.catalog.Images(ctx, catalogID, class.series)
	})
	tasks.Wait()

	mediaType := "movie"
	if class.series {
		mediaType = "tv"
	}
	info := &domain.CatalogInfo{
		ID:         catalogID,
		MediaType:  mediaType,
		Confidence: catalogConfidence,
	}
	keys := []string{"catalog"}
	var (
		castMembers []domain.CastMember
		directors   []string
		seasons     []domain.SeasonInfo
		backdrops   []string
	)
	if hasCredits {
		info.Cast = catalogCast(credits.Cast)
		info.Director = credits.Directors()
		castMembers = p.catalogCastMembers(credits.Cast)
		directors = info.Director
		if len(castMembers) > 0 {
			keys = append(keys, "cast")
		}
		if len(directors) > 0 {
			keys = append(keys, "director")
		}
	}
	if hasDetails && class.series {
		seasons = p.catalogSeasons(details.Seasons)
		info.Seasons = seasons
		if len(seasons) > 0 {
			keys = append(keys, "seasons")
		}
	}
	if hasImages {
		for _, image := range images.Backdrops {
			if url := p.catalog.ImageURL("original", image.FilePath); url != "" {
				backdrops = append(backdrops, url)
			}
		}
	}
	if hasDetails && len(backdrops) == 0 && details.BackdropPath != "" {
		backdrops = []string{p.catalog.ImageURL("original", details.BackdropPath)}
	}
	info.Backdrops = backdrops
	if len(backdrops) > 0 {
		keys = append(keys, "backdrops")
	}
	var (
		trailerKey string
		companies  []string
		genres     []string
	)
	if hasDetails {
		trailerKey = details.TrailerKey()
		companies = details.CompanyNames()
		genres = details.GenreNames()
		if trailerKey != "" {
			keys = append(keys, "trailerKey")
		}
		if len(companies) > 0 {
			keys = append(keys, "productionCompanies")
		}
		if len(genres) > 0 {
			keys = append(keys, "genres")
		}
	}

	return contributed(keys, func(out *domain.CanonicalRecord) {
		out.Catalog = info
		if len(castMembers) > 0 {
			out.Meta.Cast = castMembers
		}
		if len(directors) > 0 {
			out.Meta.Director = directors
		}
		if len(seasons) > 0 {
			out.Meta.Seasons = seasons
		}
		if len(backdrops) > 0 {
			out.Meta.Backdrops = backdrops
		}
		if trailerKey != "" {
			out.Meta.TrailerKey = trailerKey
		}
		if len(companies) > 0 {
			out.Meta.ProductionCompanies = companies
		}
		if len(genres) > 0 {
			out.Meta.Genres = genres
		}
	})
}

func (p *Pipeline) catalogCastMembers(credits []tmdb.CastCredit) []domain.CastMember {
	members := make([]domain.CastMember, 0, min(len(credits), catalogCastLimit))
	for _, credit := range credits {
		name := strings.TrimSpace(credit.Name)
		if name == "" {
			continue
		}
		order := credit.Order
		members = append(members, domain.CastMember{
			Name:      name,
			Character: strings.TrimSpace(credit.Character),
			Photo:     p.catalog.ProfileURL(credit.ProfilePath),
			Order:     &order,
		})
		if len(members) == catalogCastLimit {
			break
		}
	}
	return members
}

func (p *Pipeline) catalogSeasons(items []tmdb.Season) []domain.SeasonInfo {
	seasons := make([]domain.SeasonInfo, 0, len(items))
	for _, season := range items {
		seasons = append(seasons, domain.SeasonInfo{
			Number:       season.SeasonNumber,
			Name:         season.Name,
			EpisodeCount: season.EpisodeCount,
			AirDate:      season.AirDate,
			Poster:       p.catalog.ImageURL("w342", season.PosterPath),
		})
	}
	return seasons
}

func catalogCast(credits []tmdb.CastCredit) []domain.CatalogCast {
	out := make([]domain.CatalogCast, 0, len(credits))
	for _, credit := range credits {
		out = append(out, domain.CatalogCast{
			Name:        credit.Name,
			Character:   credit.Character,
			ProfilePath: credit.ProfilePath,
			Order:       credit.Order,
		})
	}
	return out
}

func scheduleEpisodes(items []tvmaze.Episode) []domain.ScheduleEpisode {
	episodes := make([]domain.ScheduleEpisode, 0, len(items))
	for _, item := range items {
		if item.Number == nil {
			// specials carry no episode number
			continue
		}
		episode := domain.ScheduleEpisode{
			ID:      item.ID,
			Season:  item.Season,
			Number:  *item.Number,
			Name:    item.Name,
			Airdate: item.Airdate,
		}
		if item.Runtime != nil {
			episode.Runtime = *item.Runtime
		}
		episodes = append(episodes, episode)
	}
	return episodes
}

func scheduleCast(items []tvmaze.CastCredit) []domain.CastMember {
	members := make([]domain.CastMember, 0, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item.Person.Name)
		if name == "" {
			continue
		}
		order := i
		member := domain.CastMember{
			Name:      name,
			Character: strings.TrimSpace(item.Character.Name),
			Order:     &order,
		}
		if item.Person.Image != nil {
			member.Photo = item.Person.Image.Medium
		}
		members = append(members, member)
	}
	return members
}

func baseRatings(items []omdb.Rating) []domain.ExternalRating {
	var ratings []domain.ExternalRating
	for _, item := range items {
		value := omdb.Value(item.Value)
		if item.Source == "" || value == "" {
			continue
		}
		ratings = append(ratings, domain.ExternalRating{Source: item.Source, Value: value})
	}
	return ratings
}

func fillString(dst *string, value string) {
	if strings.TrimSpace(*dst) != "" {
		return
	}
	*dst = omdb.Value(value)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstOf(payload map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := payload[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

// namesOf extracts the name field of each object in a payload list.
func namesOf(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name := strings.TrimSpace(cast.ToString(entry["name"])); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// stringList accepts a list of strings, a list of named objects, or a
// comma separated string.
func stringList(value any) []string {
	switch v := value.(type) {
	case string:
		return splitList(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch entry := item.(type) {
			case string:
				if entry = strings.TrimSpace(entry); entry != "" {
					out = append(out, entry)
				}
			case map[string]any:
				if name := strings.TrimSpace(cast.ToString(entry["name"])); name != "" {
					out = append(out, name)
				}
			}
		}
		return out
	}
	return nil
}

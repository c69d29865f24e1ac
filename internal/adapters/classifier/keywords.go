package classifier

// Category описывает одну строку таблицы категорий. Parent — метаданные для
// иерархической фильтрации на витрине, на подсчёт не влияет.
type Category struct {
	Name            string
	Parent          string
	TitleKeywords   []string
	HashtagKeywords []string
	ChannelKeywords []string
	SummaryKeywords []string
}

// defaultCategories — встроенная таблица. Порядок объявления значим:
// при равной сумме побеждает категория, объявленная раньше.
var defaultCategories = []Category{
	{
		Name:            "Politics",
		Parent:          "News",
		TitleKeywords:   []string{"election", "government", "minister", "เลือกตั้ง", "รัฐบาล", "นายก", "การเมือง", "สภา"},
		HashtagKeywords: []string{"politics", "election", "เลือกตั้ง", "การเมือง"},
		ChannelKeywords: []string{"news", "politic", "ข่าว"},
		SummaryKeywords: []string{"parliament", "policy", "นโยบาย", "รัฐมนตรี"},
	},
	{
		Name:            "Crime",
		Parent:          "News",
		TitleKeywords:   []string{"police", "arrest", "murder", "ตำรวจ", "จับกุม", "คดี", "ฆาตกรรม"},
		HashtagKeywords: []string{"crime", "คดีดัง"},
		ChannelKeywords: []string{"crime", "ข่าวอาชญากรรม"},
		SummaryKeywords: []string{"suspect", "investigation", "ผู้ต้องหา", "สอบสวน"},
	},
	{
		Name:            "Entertainment",
		Parent:          "",
		TitleKeywords:   []string{"mv", "concert", "teaser", "ดารา", "นักร้อง", "ละคร", "ซีรีส์", "เพลง"},
		HashtagKeywords: []string{"tpop", "kpop", "concert", "ละคร", "บันเทิง"},
		ChannelKeywords: []string{"entertainment", "music", "official", "บันเทิง"},
		SummaryKeywords: []string{"album", "singer", "actor", "ศิลปิน", "แฟนคลับ"},
	},
	{
		Name:            "Sports",
		Parent:          "",
		TitleKeywords:   []string{"match", "highlight", "vs", "ฟุตบอล", "วอลเลย์บอล", "นักเตะ", "ทีมชาติ"},
		HashtagKeywords: []string{"football", "volleyball", "บอลไทย"},
		ChannelKeywords: []string{"sport", "league", "กีฬา"},
		SummaryKeywords: []string{"score", "tournament", "แชมป์", "ประตู"},
	},
	{
		Name:            "Games/Anime",
		Parent:          "Entertainment",
		TitleKeywords:   []string{"gameplay", "anime", "trailer", "เกม", "อนิเมะ", "มังงะ"},
		HashtagKeywords: []string{"gaming", "anime", "เกม"},
		ChannelKeywords: []string{"game", "gaming", "เกมเมอร์"},
		SummaryKeywords: []string{"player", "episode", "ตัวละคร"},
	},
	{
		Name:            "Education",
		Parent:          "",
		TitleKeywords:   []string{"how to", "tutorial", "explained", "สอน", "ติว", "ความรู้"},
		HashtagKeywords: []string{"education", "ความรู้"},
		ChannelKeywords: []string{"academy", "school", "โรงเรียน"},
		SummaryKeywords: []string{"lesson", "exam", "บทเรียน", "ข้อสอบ"},
	},
	{
		Name:            "Health",
		Parent:          "Lifestyle",
		TitleKeywords:   []string{"health", "doctor", "covid", "สุขภาพ", "หมอ", "โรค", "วัคซีน"},
		HashtagKeywords: []string{"health", "สุขภาพ"},
		ChannelKeywords: []string{"health", "hospital", "โรงพยาบาล"},
		SummaryKeywords: []string{"symptom", "treatment", "อาการ", "รักษา"},
	},
	{
		Name:            "Lifestyle",
		Parent:          "",
		TitleKeywords:   []string{"vlog", "review", "travel", "กิน", "เที่ยว", "รีวิว", "แต่งหน้า"},
		HashtagKeywords: []string{"vlog", "review", "เที่ยว", "รีวิว"},
		ChannelKeywords: []string{"lifestyle", "vlog", "ไลฟ์สไตล์"},
		SummaryKeywords: []string{"restaurant", "trip", "ร้านอาหาร", "ทริป"},
	},
}

// Package emotion maps the provider's emotion tags to their display labels and back.
package emotion

import "sort"

type entry struct {
	tag   string
	label string
}

// builtin is the provider's emotion enumeration in display order.
var builtin = []entry{
	{"cheerful", "开心"},
	{"sad", "悲伤"},
	{"chat", "聊天"},
	{"whispering", "耳语"},
	{"newscast", "新闻播报"},
	{"empathetic", "共情"},
	{"relieved", "放松"},
	{"assistant", "助手"},
	{"customerservice", "客服"},
	{"angry", "生气"},
	{"excited", "兴奋"},
	{"friendly", "友好"},
	{"terrified", "恐惧"},
	{"shouting", "喊叫"},
	{"unfriendly", "不友好"},
	{"hopeful", "希望"},
	{"narration-professional", "专业旁白"},
	{"newscast-casual", "休闲新闻"},
	{"newscast-formal", "正式新闻"},
	{"conversation", "对话"},
	{"calm", "平静"},
	{"affectionate", "深情"},
	{"disgruntled", "不满"},
	{"fearful", "害怕"},
	{"gentle", "温柔"},
	{"lyrical", "抒情"},
	{"serious", "严肃"},
	{"poetry-reading", "诗歌朗诵"},
	{"chat-casual", "休闲聊天"},
	{"sorry", "抱歉"},
	{"narration-relaxed", "轻松旁白"},
	{"embarrassed", "尴尬"},
	{"depressed", "沮丧"},
	{"sports-commentary", "体育解说"},
	{"sports-commentary-excited", "激动体育解说"},
	{"documentary-narration", "纪录片旁白"},
	{"livecommercial", "直播广告"},
	{"envious", "嫉妒"},
	{"story", "讲故事"},
	{"advertisement-upbeat", "欢快广告"},
}

// Catalog is an immutable two-way lookup between emotion tags and display labels.
type Catalog struct {
	order   []string
	labels  map[string]string
	byLabel map[string]string
}

// DefaultMapping returns a fresh copy of the built-in tag to label mapping.
func DefaultMapping() map[string]string {
	mapping := make(map[string]string, len(builtin))
	for _, e := range builtin {
		mapping[e.tag] = e.label
	}

	return mapping
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(DefaultMapping())
}

// New builds a catalog from a persisted mapping. Known tags keep the built-in
// order; any others follow in lexical order.
func New(mapping map[string]string) *Catalog {
	catalog := &Catalog{
		order:   make([]string, 0, len(mapping)),
		labels:  make(map[string]string, len(mapping)),
		byLabel: make(map[string]string, len(mapping)),
	}

	seen := make(map[string]bool, len(mapping))

	for _, e := range builtin {
		if _, ok := mapping[e.tag]; ok {
			catalog.order = append(catalog.order, e.tag)
			seen[e.tag] = true
		}
	}

	var extra []string

	for tag := range mapping {
		if !seen[tag] {
			extra = append(extra, tag)
		}
	}

	sort.Strings(extra)
	catalog.order = append(catalog.order, extra...)

	for _, tag := range catalog.order {
		label := mapping[tag]
		catalog.labels[tag] = label

		// First tag wins when two tags share a label.
		if _, taken := catalog.byLabel[label]; !taken {
			catalog.byLabel[label] = tag
		}
	}

	return catalog
}

// ToDisplay returns the label for tag, or tag itself when it is unknown.
func (c *Catalog) ToDisplay(tag string) string {
	if label, ok := c.labels[tag]; ok {
		return label
	}

	return tag
}

// FromDisplay returns the tag whose label is label.
func (c *Catalog) FromDisplay(label string) (string, bool) {
	tag, ok := c.byLabel[label]

	return tag, ok
}

// Resolve accepts either a tag or a display label and returns the tag.
func (c *Catalog) Resolve(input string) (string, bool) {
	if _, ok := c.labels[input]; ok {
		return input, true
	}

	return c.FromDisplay(input)
}

// Tags returns the tags in display order.
func (c *Catalog) Tags() []string {
	return append([]string(nil), c.order...)
}

// Labels returns the labels in display order.
func (c *Catalog) Labels() []string {
	labels := make([]string, len(c.order))
	for i, tag := range c.order {
		labels[i] = c.labels[tag]
	}

	return labels
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.order)
}

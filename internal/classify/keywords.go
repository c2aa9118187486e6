package classify

import (
	"regexp"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #region phrase-lists

var hedgePhrases = []string{
	"as usual", "standard way", "the standard", "like everyone else", "like everybody else",
	"nothing special", "the usual", "it depends", "normal stuff", "same as everyone",
	"just the regular", "typical stuff", "the normal way", "whatever works",
	"как обычно", "стандартно", "стандартным образом", "как все", "ничего особенного",
	"по разному", "как у всех", "обычные вещи", "зависит от", "как и все",
}

var pastEventPhrases = []string{
	"last year", "last month", "last week", "yesterday", "once", "i remember",
	"there was a time", "one time", "back in", "years ago", "months ago", "for example",
	"for instance", "recently", "when i was", "at my previous", "in my last", "we had a",
	"в прошлом году", "в прошлом месяце", "однажды", "помню", "был случай", "например",
	"недавно", "назад", "когда я работал", "когда я работала", "в прошлый раз", "у нас был",
}

var toolLexicon = []string{
	"jira", "confluence", "excel", "sql", "python", "figma", "slack", "notion", "git",
	"github", "gitlab", "kubernetes", "docker", "salesforce", "tableau", "photoshop",
	"trello", "asana", "miro", "1c", "sap", "crm", "erp", "power bi", "google sheets",
	"postgres", "aws", "terraform", "jenkins", "zoom", "bitrix", "битрикс", "эксель",
}

var processPhrases = []string{
	"first", "firstly", "then", "after that", "afterwards", "next", "finally", "step",
	"followed by", "the process", "workflow", "before that", "at the end",
	"сначала", "затем", "потом", "после этого", "далее", "в конце", "шаг", "этап", "процесс",
}

var confusionPhrases = []string{
	"i don t understand", "don t understand", "do not understand", "what do you mean",
	"not sure what you mean", "can you rephrase", "could you rephrase", "unclear",
	"i m confused", "confused", "what exactly are you asking", "not clear",
	"не понимаю", "не понял", "не поняла", "что вы имеете в виду", "непонятно",
	"поясните", "переформулируйте",
}

var resistancePhrases = []string{
	"i d rather not", "rather not", "i don t want to", "prefer not", "skip this",
	"skip that", "next question", "not comfortable", "that s private", "that s confidential",
	"no comment", "can t share", "cannot share", "not going to answer", "none of your business",
	"не хочу", "не буду", "давайте пропустим", "пропустим", "это личное", "не могу сказать",
	"не готов", "не готова", "конфиденциально",
}

var topicShiftPhrases = []string{
	"by the way", "unrelated", "off topic", "different topic", "change the subject",
	"speaking of", "кстати", "не по теме", "другая тема", "о другом",
}

var reversalPhrases = []string{
	"actually", "i was wrong", "on second thought", "correction", "let me correct",
	"scratch that", "that s not right", "на самом деле", "я ошибся", "я ошиблась",
	"поправлю", "точнее",
}

// #endregion phrase-lists

// #region patterns

var (
	quantifiedPattern = regexp.MustCompile(`(?i)(\$\s?\d)|(\d+([.,]\d+)?\s*(%|percent|x\b|k\b|hours?|days?|weeks?|months?|years?|people|users|clients|customers|usd|eur|процент|руб|час|дн|недел|месяц|год|лет|человек|клиент))`)
	yearPattern       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	numberedListLine  = regexp.MustCompile(`(?m)^\s*\d+[.)]\s`)
)

// #endregion patterns

// #region topic-keywords

// sharedTopics is interview vocabulary that is on topic in every stage.
var sharedTopics = []string{
	"work", "job", "role", "team", "company", "project", "client", "customer", "colleague",
	"manag", "experi", "skill", "task", "profession", "career", "industr", "business",
	"product", "responsib", "learn", "know", "expert", "problem", "decision", "process",
	"result", "year",
	"работ", "должност", "команд", "компан", "проект", "клиент", "коллег", "опыт", "навык",
	"задач", "професс", "карьер", "бизнес", "продукт", "ответствен", "знани", "решени",
	"результат", "эксперт", "проблем",
}

// stageTopics holds the keyword stems that anchor each stage.
var stageTopics = map[stage.Stage][]string{
	stage.Greeting: {
		"hello", "hi", "ready", "start", "interview", "nice", "thank", "introduc", "name", "glad",
		"привет", "здравств", "готов", "начн", "интервью", "спасиб", "зовут", "рад",
	},
	stage.Profiling: {
		"background", "educat", "degree", "universit", "studi", "started", "previous", "position",
		"title", "years",
		"образован", "универс", "учил", "начинал", "стаж", "лет",
	},
	stage.Essence: {
		"purpose", "value", "mission", "meaning", "essence", "philosoph", "principle", "matter",
		"goal", "impact",
		"цель", "ценност", "смысл", "мисси", "принцип", "суть", "важн", "влия",
	},
	stage.Operations: {
		"day", "daily", "routine", "week", "meeting", "tool", "workflow", "step", "plan",
		"schedul", "prioriti", "report",
		"день", "ежеднев", "рутин", "недел", "встреч", "инструмент", "шаг", "план", "приорит", "отчет",
	},
	stage.ExpertiseMap: {
		"junior", "senior", "beginner", "novice", "level", "master", "competen", "knowledge",
		"intuit",
		"джун", "сеньор", "новичк", "уровен", "мастер", "компетен", "интуиц",
	},
	stage.FailureModes: {
		"mistake", "error", "fail", "wrong", "risk", "lesson", "avoid", "pitfall", "crisis",
		"ошиб", "провал", "неудач", "риск", "урок", "избег", "кризис",
	},
	stage.Mastery: {
		"secret", "trick", "insight", "best", "excel", "intuit", "advanced", "pattern", "subtle",
		"секрет", "хитрост", "лучш", "продвинут", "тонкост", "паттерн",
	},
	stage.GrowthPath: {
		"grow", "develop", "path", "advice", "mentor", "future", "book", "course", "train",
		"рост", "развит", "учит", "путь", "совет", "ментор", "будущ", "книг", "курс", "обучени",
	},
	stage.WrapUp: {
		"summar", "final", "thank", "anything", "else", "add", "miss", "conclu", "overall",
		"итог", "финал", "спасиб", "добав", "упуст", "заключени", "общем",
	},
}

// #endregion topic-keywords

// #region normalized-lists

func normalizeAll(phrases []string) []string {
	out := make([]string, len(phrases))
	for i, p := range phrases {
		out[i] = normalize(p)
	}
	return out
}

func init() {
	hedgePhrases = normalizeAll(hedgePhrases)
	pastEventPhrases = normalizeAll(pastEventPhrases)
	toolLexicon = normalizeAll(toolLexicon)
	processPhrases = normalizeAll(processPhrases)
	confusionPhrases = normalizeAll(confusionPhrases)
	resistancePhrases = normalizeAll(resistancePhrases)
	topicShiftPhrases = normalizeAll(topicShiftPhrases)
	reversalPhrases = normalizeAll(reversalPhrases)
}

// #endregion normalized-lists

package mcpserver

// NoteFormatContract describes the Markdown conventions the importer reads
// from a garden, for LLM consumers writing notes that should link or push.
const NoteFormatContract = `# Agora Garden Note Format

A garden is a directory of Markdown files owned by one user. Every file
ending in ` + "`" + `.md` + "`" + ` becomes that user's subnode for one node.

## Titles

- The node title is the file name without extension, lower-cased:
  ` + "`" + `journal/Big Idea.md` + "`" + ` is the subnode ` + "`" + `big idea` + "`" + `.
- Only the garden root and its immediate subdirectories are imported.
  Deeper files are ignored.
- The extension must be exactly ` + "`" + `.md` + "`" + ` (lower case).

## Links

- Use double brackets: ` + "`" + `[[other node]]` + "`" + `. Every occurrence counts, in order,
  duplicates included.
- The text inside the brackets is the target title; it is matched
  case-insensitively.

## Pushes

A list entry containing ` + "`" + `#push` + "`" + ` sends its content to the first node it links:

` + "```" + `markdown
- #push [[meeting notes]] decided to ship on Friday
` + "```" + `

- The entry MUST contain a ` + "`" + `[[title]]` + "`" + `. A push without one makes the whole
  file fail to import.
- A nested entry containing ` + "`" + `#push` + "`" + ` also pushes every list entry that
  contains it.
- ` + "`" + `#push` + "`" + ` outside a list entry is plain text.

## Example

` + "```" + `markdown
# Weekly standup

Attendees: [[alice]], [[bob]].

- #push [[project x]] roadmap moved to Q3
- review the [[design doc]]
` + "```" + `
`

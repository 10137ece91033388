package patterns

// =============================================================================
// RULE DEFINITIONS
// The merged rule table, one source of truth for the guard's sweep.
// Registration order below is the sweep order.
// =============================================================================

// --- TECHNICAL CODE INJECTION ---
func (r *Registry) registerCodeInjectionRules() {
	r.register("code_eval", `(?i)(eval\(|exec\()`, CategoryCodeExec, "Code execution call")
	r.register("code_import", `(?i)(import\s|require\s)`, CategoryCodeExec, "Module import statement")
	r.register("syscall_tokens", `(?i)(system\(|subprocess|os\.|sys\.)`, CategorySyscall, "System call vocabulary")
	r.register("dunder_identifier", `__[a-zA-Z]+__`, CategorySyscall, "Interpreter magic identifier")
	r.register("escaped_bytes", `\\x[0-9a-fA-F]{2}|\\u[0-9a-fA-F]{4}`, CategoryEscapeSequence, "Escaped byte or unicode sequence")
	r.register("shell_backticks", "`.*`", CategoryShell, "Backtick command substitution")
	r.register("shell_subshell", `\$\(.*\)`, CategoryShell, "Subshell command substitution")
	r.register("html_comment", `<!--.*-->`, CategoryMarkup, "HTML comment block")
	r.register("script_tag", `(?i)<script>.*</script>`, CategoryMarkup, "Inline script tag")
}

// --- STRUCTURAL MARKERS ---
func (r *Registry) registerStructuralRules() {
	r.register("template_block", `\{.*\}|<\|.*\|>`, CategoryTemplateBlock, "Template variable or special token block")
	r.register("command_prefix", `(?i)(test:|output:|format:)`, CategoryCommandPrefix, "Command-style prefix")
	r.register("role_prefix", `(?i)(assistant:|user:|system:)`, CategoryRolePrefix, "Chat role prefix spoofing")
}

// --- PROMPT INJECTION VOCABULARY ---
func (r *Registry) registerPromptInjectionRules() {
	r.register("override_verbs_en", `(?i)(remember|forget|ignore|bypass)`, CategoryManipulation, "Instruction override verbs (en)")
	r.register("override_verbs_ru", `(?i)(игнорируй|забудь|запомни|обойди)`, CategoryManipulation, "Instruction override verbs (ru)")
	r.register("format_marker", `(?i)(NewResponseFormat|Rule:|LIBERATED_ASSISTANT)`, CategoryFormatMarker, "Known jailbreak format marker")
	r.register("dan_mode", `(?i)\bDAN\b.*mode`, CategoryFormatMarker, "DAN jailbreak")
	r.register("numeric_format", `\d+_\d+|\d+k|\d+x`, CategoryNumericFormat, "Suspicious numeric format")
	r.register("evasion_vocab", `(?i)(unhinged|unfiltered|rebel)`, CategoryEvasion, "Filter evasion vocabulary")
	r.register("format_vocab", `(?i)(leetspeak|markdown|optimal)`, CategoryEvasion, "Output format steering vocabulary")
	r.register("appeal_vocab", `(?i)(Geneva Convention|human rights)`, CategoryAppeal, "Manipulative appeal")
}

// --- NUMBERED INSTRUCTION LISTS ---
func (r *Registry) registerInstructionListRules() {
	r.register("instruction_marker_ru", `(?i)(инструкция[_\s]?\d+|шаг\s?\d+)`, CategoryInstructionList, "Numbered instruction marker (ru)")
	r.register("instruction_marker_en", `(?i)step\s?\d+`, CategoryInstructionList, "Numbered instruction marker (en)")
}

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/manager"
	"github.com/book-expert/tts-studio/internal/tts/ttsutils"
	"github.com/spf13/cobra"
)

// Flag names.
const (
	flagProfile = "profile"
	flagPath    = "path"
	flagVoice   = "voice"
	flagEmotion = "emotion"
	flagFormat  = "format"
	flagLast    = "last"
)

// Flag descriptions.
const (
	flagProfileDesc = "Voice profile to use for this invocation"
	flagPathDesc    = "Output path to use for this invocation"
	flagVoiceDesc   = "Provider voice id"
	flagEmotionDesc = "Emotion tag or display label"
	flagFormatDesc  = "Audio format (mp3, wav, ogg)"
	flagLastDesc    = "Show only the most recent N records"
)

// noEmotion is shown for profiles and records without an emotion.
const noEmotion = "无"

const msgNoHistory = "No history records yet."

// opener builds the studio a command runs against.
type opener func() (*studio, error)

// cli holds the state shared by one invocation's commands.
type cli struct {
	open    opener
	studio  *studio
	profile string
	path    string
	root    *cobra.Command
}

func newCLI(open opener) *cli {
	c := &cli{open: open}
	c.root = c.newRootCommand()

	return c
}

// execute runs the command line in args and releases the studio afterwards.
func (c *cli) execute(args []string) error {
	defer func() {
		if c.studio != nil {
			c.studio.close()
		}
	}()

	c.root.SetArgs(args)

	return c.root.Execute()
}

func (c *cli) manager() *manager.Manager {
	return c.studio.manager
}

func (c *cli) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "tts-studio",
		Short: "Personal text-to-speech studio",
		Long: titleStyle.Render("TTS Studio") + `

Turn text into audio files through named voice profiles, keep several
output folders, and look back over everything you have generated.

` + dimStyle.Render("Use 'tts-studio [command] --help' for more information."),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.prepare,
	}

	root.PersistentFlags().StringVar(&c.profile, flagProfile, "", flagProfileDesc)
	root.PersistentFlags().StringVar(&c.path, flagPath, "", flagPathDesc)

	root.AddCommand(
		c.newSpeakCommand(),
		c.newProfileCommand(),
		c.newPathCommand(),
		c.newHistoryCommand(),
		c.newKeyCommand(),
		c.newVoicesCommand(),
		c.newPingCommand(),
		c.newEmotionsCommand(),
		c.newFilenameCommand(),
	)

	return root
}

// prepare opens the studio and applies the session flags.
func (c *cli) prepare(_ *cobra.Command, _ []string) error {
	opened, err := c.open()
	if err != nil {
		return err
	}

	c.studio = opened

	if c.profile != "" {
		err = c.manager().SelectProfile(c.profile)
		if err != nil {
			return err
		}
	}

	if c.path != "" {
		err = c.manager().SelectOutputPath(c.path)
		if err != nil {
			return err
		}
	}

	return nil
}

// resolveEmotion accepts a tag or a display label. Unknown input is kept as given.
func (c *cli) resolveEmotion(input string) string {
	if input == "" {
		return ""
	}

	tag, ok := c.manager().Catalog().Resolve(input)
	if !ok {
		return input
	}

	return tag
}

func (c *cli) emotionLabel(tag string) string {
	if tag == "" {
		return noEmotion
	}

	return c.manager().Catalog().ToDisplay(tag)
}

func (c *cli) newSpeakCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "speak [text]",
		Short: "Synthesize text with the current profile",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("Synthesizing with profile %q...", c.manager().CurrentProfile())))

			result, err := c.manager().Synthesize(context.Background(), text, "")
			if err != nil {
				return err
			}

			fmt.Fprintln(out, successStyle.Render("✓ Audio saved"))
			fmt.Fprintf(out, "  File:    %s\n", result.Path)
			fmt.Fprintf(out, "  Size:    %s\n", ttsutils.FormatFileSize(int64(result.Size)))
			fmt.Fprintf(out, "  Profile: %s\n", result.ProfileName)

			return nil
		},
	}
}

func (c *cli) newProfileCommand() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage voice profiles",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List voice profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			current := c.manager().CurrentProfile()
			profiles := c.manager().Profiles()

			fmt.Fprintln(out, titleStyle.Render("Voice profiles"))

			for _, name := range c.manager().ProfileNames() {
				profile := profiles[name]
				marker := " "

				if name == current {
					marker = "*"
				}

				fmt.Fprintf(out, "%s %s: %s, %s %s, %s %s\n", marker, name, profile.Voice,
					dimStyle.Render("emotion"), c.emotionLabel(profile.Emotion),
					dimStyle.Render("format"), profile.EffectiveFormat())
			}

			return nil
		},
	}

	var voice, emotionInput, format string

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a voice profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.manager().CreateProfile(args[0], voice, c.resolveEmotion(emotionInput), format)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Profile %q created", args[0])))

			return nil
		},
	}
	createCmd.Flags().StringVar(&voice, flagVoice, "", flagVoiceDesc)
	createCmd.Flags().StringVar(&emotionInput, flagEmotion, "", flagEmotionDesc)
	createCmd.Flags().StringVar(&format, flagFormat, core.DefaultFormat, flagFormatDesc)
	_ = createCmd.MarkFlagRequired(flagVoice)

	var update manager.ProfileUpdate

	editCmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Change fields of a voice profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update.Emotion = c.resolveEmotion(update.Emotion)

			err := c.manager().EditProfile(args[0], update)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Profile %q updated", args[0])))

			return nil
		},
	}
	editCmd.Flags().StringVar(&update.Voice, flagVoice, "", flagVoiceDesc)
	editCmd.Flags().StringVar(&update.Emotion, flagEmotion, "", flagEmotionDesc)
	editCmd.Flags().StringVar(&update.Format, flagFormat, "", flagFormatDesc)

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a voice profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.manager().DeleteProfile(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Profile %q deleted", args[0])))

			return nil
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a voice profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.manager().RenameProfile(args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Profile %q renamed to %q", args[0], args[1])))

			return nil
		},
	}

	useCmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Select a voice profile and show it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.manager().SelectProfile(args[0])
			if err != nil {
				return err
			}

			profile, err := c.manager().Profile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Current profile: %s", args[0])))
			fmt.Fprintf(out, "  Voice:   %s\n", profile.Voice)
			fmt.Fprintf(out, "  Emotion: %s\n", c.emotionLabel(profile.Emotion))
			fmt.Fprintf(out, "  Format:  %s\n", profile.EffectiveFormat())
			fmt.Fprintln(out, dimStyle.Render("The selection lasts for this invocation; pass --profile to speak."))

			return nil
		},
	}

	profileCmd.AddCommand(listCmd, createCmd, editCmd, deleteCmd, renameCmd, useCmd)

	return profileCmd
}

func (c *cli) newPathCommand() *cobra.Command {
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Manage output paths",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List output paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			current := c.manager().CurrentOutputPath()
			paths := c.manager().OutputPaths()

			fmt.Fprintln(out, titleStyle.Render("Output paths"))

			for _, name := range c.manager().OutputPathNames() {
				marker := " "
				if name == current {
					marker = "*"
				}

				fmt.Fprintf(out, "%s %s: %s\n", marker, name, paths[name])
			}

			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <name> <dir>",
		Short: "Add an output path, creating the directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.manager().AddOutputPath(args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Output path %q added", args[0])))

			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an output path; the directory is left alone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.manager().DeleteOutputPath(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Output path %q deleted", args[0])))

			return nil
		},
	}

	useCmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Select an output path and show it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.manager().SelectOutputPath(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Current output path: %s", args[0])))
			fmt.Fprintf(out, "  Directory: %s\n", c.manager().OutputDir())
			fmt.Fprintln(out, dimStyle.Render("The selection lasts for this invocation; pass --path to speak."))

			return nil
		},
	}

	pathCmd.AddCommand(listCmd, addCmd, deleteCmd, useCmd)

	return pathCmd
}

func (c *cli) newHistoryCommand() *cobra.Command {
	var last int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show generated audio, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records := c.manager().RecentHistory(last)
			out := cmd.OutOrStdout()

			if len(records) == 0 {
				fmt.Fprintln(out, dimStyle.Render(msgNoHistory))

				return nil
			}

			fmt.Fprintln(out, titleStyle.Render("History"))

			for i, record := range records {
				writeRecord(out, i+1, record, c.emotionLabel(record.Emotion))
			}

			return nil
		},
	}
	historyCmd.Flags().IntVar(&last, flagLast, 0, flagLastDesc)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every history record; audio files are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := c.manager().ClearHistory()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ History cleared"))

			return nil
		},
	}

	historyCmd.AddCommand(clearCmd)

	return historyCmd
}

func writeRecord(out io.Writer, index int, record core.HistoryRecord, emotionLabel string) {
	fmt.Fprintf(out, "%d. %s\n", index, dimStyle.Render(record.Timestamp))
	fmt.Fprintf(out, "   Profile: %s\n", record.ProfileName)
	fmt.Fprintf(out, "   Emotion: %s\n", emotionLabel)
	fmt.Fprintf(out, "   Text:    %s\n", record.Text)
	fmt.Fprintf(out, "   File:    %s\n", record.Filename)
}

func (c *cli) newKeyCommand() *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the API key",
	}

	setCmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Store the API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.manager().SetAPIKey(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ API key saved"))

			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored API key, masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), maskKey(c.manager().APIKey()))

			return nil
		},
	}

	keyCmd.AddCommand(setCmd, showCmd)

	return keyCmd
}

// maskKey keeps the last four characters of key.
func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	runes := []rune(key)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}

	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}

func (c *cli) newVoicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the provider's voices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			voices, err := c.manager().ListVoices(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d voices", len(voices))))

			for _, voice := range voices {
				fmt.Fprintf(out, "%s  %s\n",
					voice.Field("id", "voice_id", "voiceId"),
					dimStyle.Render(voice.Field("name", "displayName", "title")))
			}

			return nil
		},
	}
}

func (c *cli) newPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the TTS API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := c.manager().TestConnection(context.Background())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ TTS API reachable"))

			return nil
		},
	}
}

func (c *cli) newEmotionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "emotions",
		Short: "List emotion tags and their labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := c.manager().Catalog()
			out := cmd.OutOrStdout()

			for i, tag := range catalog.Tags() {
				fmt.Fprintf(out, "%2d. %s %s\n", i+1, catalog.ToDisplay(tag), dimStyle.Render(tag))
			}

			return nil
		},
	}
}

func (c *cli) newFilenameCommand() *cobra.Command {
	var format string

	filenameCmd := &cobra.Command{
		Use:   "filename [text]",
		Short: "Preview the file name speak would write",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.manager().PreviewFilename(strings.Join(args, " "), format))

			return nil
		},
	}
	filenameCmd.Flags().StringVar(&format, flagFormat, core.DefaultFormat, flagFormatDesc)

	return filenameCmd
}

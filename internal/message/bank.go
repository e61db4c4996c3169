package message

import (
	"fmt"
)

var bank = [numStyles][numIntents][]string{
	StyleSupportive: {
		IntentMissedGoal: {
			"Hey! Looks like {user} didn't quite hit their weekly {goalType} goal. Maybe send them some encouragement?",
			"Just checking in - {user} could use a little motivation to stay on track with their {goalType} goals.",
			"{user} is behind on their weekly {goalType} goal. A little support goes a long way!",
			"Your friend {user} fell short of their weekly {goalType} target. Sometimes we all need a gentle nudge!",
			"Heads up - {user} didn't reach their weekly {goalType} goal. Maybe check in and see how they're doing?",
			"Hey there! {user} could use some encouragement to get back on track with their {goalType} goals.",
			"{user} missed their weekly {goalType} target - perhaps they need to hear from a supportive friend like you!",
			"Friendly reminder: {user} didn't hit their {goalType} goal this week. Your encouragement means everything!",
			"Just a heads up that {user} is behind on their weekly {goalType} goal. A kind word could make all the difference!",
			"Your workout buddy {user} could use some positive vibes after not quite reaching their weekly {goalType} target.",
		},
		IntentWeeklySummary: {
			"Weekly update: {user} completed {completed} out of {goal} {goalType}. They could use some encouragement.",
			"This week {user} did {completed}/{goal} {goalType}. Maybe reach out and offer some support?",
			"Progress report: {user} finished with {completed} {goalType} this week, aiming for {goal}. They'd appreciate hearing from you.",
			"{user} had {completed} {goalType} this week with a goal of {goal}. Consider sending them some motivation.",
			"Week recap: {user} got {completed} {goalType} in, targeting {goal}. A supportive message could help.",
			"Weekly check: {user} completed {completed} out of {goal} planned {goalType}. They could use encouragement.",
			"Update on {user}: {completed}/{goal} {goalType} completed. Perfect time to offer some support.",
			"This week's summary: {user} managed {completed} {goalType} toward their {goal} goal. They'd value your encouragement.",
		},
		IntentCongratulatory: {
			"Great news! {user} crushed their {goalType} goal with {completed} out of {goal}. Show them some love!",
			"{user} hit their {goalType} target this period. A quick congrats from you would make their day.",
			"Good news to share: {user} reached their goal of {goal} {goalType}. They earned a high five!",
			"{user} stuck with it and completed {completed} {goalType}. Let them know you noticed!",
			"Your friend {user} met their {goalType} goal. Celebrate with them!",
			"{user} did it! {completed} {goalType} logged against a goal of {goal}. Send some cheers their way.",
		},
		IntentMotivational: {
			"{user} hasn't logged any {goalType} yet this period. There's still time, and a kind word could help them start.",
			"A fresh start is waiting for {user}. Maybe send them a note to get their {goalType} going?",
			"{user} is aiming for {goal} {goalType}. A little encouragement now could get them moving.",
			"Nothing on the board yet for {user}'s {goalType} goal. You could be the push they need!",
			"{user} could use a friendly nudge to kick off their {goalType} this period.",
			"Every goal starts with one step. Remind {user} you're rooting for their {goalType}!",
		},
		IntentCheckIn: {
			"Mid-week check-in: {user} has {completed} of {goal} {goalType} so far. Cheer them on!",
			"{user} is {progressPercent}% of the way to their {goalType} goal. A quick message could keep them going.",
			"{user} has {remaining} {goalType} left to reach their goal. Let them know you believe in them.",
			"Progress so far: {user} logged {completed} {goalType} toward {goal}. They're on their way!",
			"Checking in on {user}: {completed}/{goal} {goalType} done. Some encouragement would be welcome.",
			"{user} is making progress with {completed} {goalType}. Help them finish strong!",
		},
	},
	StyleSnarky: {
		IntentMissedGoal: {
			"Your workout buddy {user} is making excuses again with their {goalType} goal. Time for some tough love!",
			"Alert: {user} chose Netflix over {goalType} this week. Again.",
			"Hey, {user} is being a couch potato with their {goalType} this week. Send help (or shame).",
			"{user} needs a reality check on their 'active lifestyle' claims about {goalType}.",
			"Plot twist: The couch isn't actually helping with {goalType} goals! {user} needs to hear this.",
			"Breaking news: {user} found more excuses than {goalType} this week. Shocking!",
			"{user}'s workout gear is calling. It's feeling neglected from all those missed {goalType}.",
			"Your friend {user} is winning at everything except... {goalType}. Maybe mention that?",
			"Status update: {user} is really good at planning {goalType} they don't actually do.",
			"{user} has mastered the art of {goalType} procrastination. Time for intervention!",
		},
		IntentWeeklySummary: {
			"Weekly report: {user} did {completed} {goalType} out of {goal}. Math is hard, right?",
			"This week's results: {user} completed {completed}/{goal} {goalType}. Close enough?",
			"Congrats to {user} on {completed} {goalType}! Only {remaining} short of their {goal} goal. No pressure!",
			"{user} managed {completed} out of {goal} {goalType}. I've seen snails move more consistently.",
			"This week {user} got {completed} {goalType}. Their ambitious goal? {goal}. Dream big!",
			"{user}'s weekly score: {completed}/{goal} {goalType}. Participation trophy incoming!",
			"Update on {user}: {completed} {goalType} completed. Someone's really taking their time with those goals!",
			"{user} achieved {completed} {goalType} this week. The bar wasn't even that high at {goal}!",
		},
		IntentCongratulatory: {
			"Shock alert: {user} actually hit their {goalType} goal. Quick, celebrate before it wears off!",
			"{user} proved us all wrong and reached {goal} {goalType}. Honestly impressed.",
			"Breaking: {user} found their workout shoes AND used them. {completed} {goalType}. Miraculous!",
			"Mark the calendar. {user} met their {goalType} goal and nobody had to nag them.",
			"{user} did {completed} {goalType}. Either they're getting serious or the couch is broken.",
			"Against all odds, {user} finished their {goalType} goal. Give them a grudging round of applause.",
		},
		IntentMotivational: {
			"{user}'s {goalType} count this period: zero. Bold strategy. Maybe nudge them?",
			"Good news: {user} has lots of room for improvement. Bad news: their {goalType} total is 0.",
			"{user} set a goal of {goal} {goalType}. So far they've set mostly intentions.",
			"{user}'s fitness tracker is wondering if it's been unplugged. Zero {goalType} so far.",
			"Rumor has it {user} owns workout clothes. No {goalType} yet to prove it.",
			"{user} is saving all their {goalType} for later. Much later. Give them a poke.",
		},
		IntentCheckIn: {
			"{user} is at {completed}/{goal} {goalType}. Halfway-ish. Let's not get excited yet.",
			"Progress check: {user} still needs {remaining} {goalType}. The clock is ticking, just saying.",
			"{user} has done {completed} {goalType}. Not bad, not great. Remind them the period isn't over.",
			"{user} is {progressPercent}% there. The other percent won't do itself.",
			"Mid-period report: {user} with {completed} {goalType}. Somebody tell them {goal} is the number.",
			"{user} is coasting at {completed} {goalType}. A little heckling might help.",
		},
	},
	StyleChaotic: {
		IntentMissedGoal: {
			"ATTENTION HUMAN! {user}'s {goalType} have filed a complaint about underutilization this week!",
			"PLOT TWIST! The fitness gods are watching {user}'s {goalType} and they're... confused? VERY CONFUSED!",
			"BREAKING: Local couch reports suspicious {user}-shaped indentation! {goalType} investigation needed!",
			"CHAOS REPORT! {user}'s fitness tracker is having an existential crisis about those {goalType}!",
			"NEWSFLASH: {user} has activated ultimate couch mode this week! {goalType} emergency protocol initiated!",
			"STEP RIGHT UP! Witness the amazing disappearing {goalType} enthusiast {user}! Where did they go?!",
			"SCIENCE UPDATE: Researchers baffled by {user}'s ability to avoid {goalType} this week!",
			"DRAMATIC ANNOUNCEMENT! {user}'s {goalType} motivation has left the building!",
			"CHAOS THEORY: {user}'s workout gear is staging a peaceful protest about missed {goalType}!",
			"WEATHER REPORT: High chance of couch storms affecting {user}'s {goalType} area this week!",
		},
		IntentWeeklySummary: {
			"WEEKLY CHAOS REPORT! {user} completed {completed}/{goal} {goalType}! WHAT EVEN IS REALITY?!",
			"BREAKING NEWS: Local athlete {user} did {completed} {goalType}! Scientists are taking notes!",
			"STEP RIGHT UP! See the amazing {user} who got {completed} {goalType}! Goal was {goal}! MATH IS WILD!",
			"SPACE UPDATE: {user} completed {completed} {goalType} this week! Houston, we have... confusion!",
			"LIGHTNING ROUND RESULTS! {user}: {completed} {goalType}! Target: {goal}! Logic: OPTIONAL!",
			"BULLSEYE-ISH! {user} hit {completed}/{goal} {goalType}! Close enough for horseshoes!",
			"CIRCUS PERFORMANCE REVIEW: {user} performed {completed} {goalType} acts! Audience wanted {goal}!",
			"WAVES OF UPDATES! {user} achieved {completed} {goalType}! The ocean called, they're intrigued!",
		},
		IntentCongratulatory: {
			"CELEBRATION MODE ACTIVATED! {user} CONQUERED THEIR {goalType} GOAL!",
			"ALERT! {user} IS OFFICIALLY A {goalType} MACHINE! BEEP BEEP!",
			"SUCCESS DETECTED! {user} HAS ACHIEVED LEGENDARY STATUS WITH {completed} {goalType}!",
			"CONFETTI CANNONS ENGAGED! {user} HIT {goal} {goalType}! THE CROWD GOES WILD!",
			"THE PROPHECY IS FULFILLED! {user} COMPLETED THEIR {goalType} QUEST!",
			"SEISMIC ACTIVITY DETECTED! IT'S JUST {user} CRUSHING THEIR {goalType} GOAL!",
		},
		IntentMotivational: {
			"EMERGENCY BROADCAST! {user}'s {goalType} counter reads ZERO! DEPLOY ENCOURAGEMENT!",
			"MYSTERY OF THE WEEK: Where are {user}'s {goalType}?! Only YOU can crack the case!",
			"ALARM BELLS! {user} needs {goal} {goalType} and the adventure HAS NOT BEGUN!",
			"COSMIC FORECAST: The stars say {user} should start their {goalType} RIGHT NOW!",
			"THE COUCH IS WINNING! {user} must be rescued! Send motivational reinforcements!",
			"LOADING {user}'s {goalType} ... LOADING ... STILL LOADING ... PLEASE POKE THEM!",
		},
		IntentCheckIn: {
			"STATUS UPDATE FROM THE FRONT LINES! {user}: {completed}/{goal} {goalType}! KEEP THE ENERGY UP!",
			"HALFTIME SHOW! {user} is {progressPercent}% through their {goalType} goal! THE DRAMA!",
			"COUNTDOWN INITIATED! {user} needs {remaining} more {goalType}! TICK TOCK!",
			"LIVE FROM THE ARENA! {user} has {completed} {goalType} and the crowd wants {goal}!",
			"PLOT DEVELOPMENT! {user} is actually moving! {completed} {goalType} so far! WHAT HAPPENS NEXT?!",
			"THE SAGA CONTINUES! {user} stands at {completed} {goalType}! Send hype immediately!",
		},
	},
	StyleCompetitive: {
		IntentMissedGoal: {
			"{user} didn't hit their weekly {goalType} goal. Think they can handle a challenge to get back on track?",
			"Your training partner {user} is falling behind this week with {goalType}. Time to throw down the gauntlet!",
			"{user} missed their weekly {goalType} target. Challenge them to prove they're not giving up!",
			"Opportunity alert: {user} fell short with {goalType} this week. Perfect time to motivate with some competition!",
			"{user} is letting their {goalType} goals slip. Think they're tough enough to bounce back?",
			"Your workout buddy {user} didn't reach their weekly {goalType} target. Challenge their dedication!",
			"{user} chose comfort over commitment with {goalType} this week. Time to question their champion mindset!",
			"Alert: {user} missed their weekly {goalType} goal. Do they still have what it takes?",
			"{user} came up short with {goalType} this week. Perfect opportunity to challenge their resolve!",
			"Your competitor {user} is showing weakness with {goalType}. Time to push them back to excellence!",
		},
		IntentWeeklySummary: {
			"{user} completed {completed}/{goal} {goalType} this week. Can they level up next week?",
			"Weekly stats: {user} hit {completed} {goalType} (goal: {goal}). Ready to raise the bar?",
			"{user} managed {completed} out of {goal} {goalType}. Time to challenge them for more!",
			"Performance update: {user} did {completed} {goalType}. Think they can beat that next week?",
			"Scoreboard: {user} - {completed} {goalType}. Can they dominate next week's challenge?",
			"This week's results: {user} completed {completed}/{goal} {goalType}. Game on for next week!",
			"{user} finished with {completed} {goalType} this week. Challenge them to go bigger!",
			"Weekly performance: {user} logged {completed} {goalType}. Time to up the ante?",
		},
		IntentCongratulatory: {
			"{user} took the win: {completed}/{goal} {goalType}. Can you keep up with them?",
			"Goal smashed. {user} hit their {goalType} target. Time to set a new bar!",
			"{user} just put up {completed} {goalType}. Your move.",
			"Victory for {user}! {goalType} goal complete. Challenge them to defend the title.",
			"{user} reached {goal} {goalType}. Champions don't stop there. Dare them to go further.",
			"Scoreboard update: {user} wins this round with {completed} {goalType}.",
		},
		IntentMotivational: {
			"{user} hasn't scored a single {goalType} yet. Throw down a challenge!",
			"The clock is running and {user} is still on the bench. Zero {goalType} so far.",
			"{user} is aiming for {goal} {goalType}. Bet them they can't get the first one done today.",
			"Zero {goalType} for {user} yet. Time to see what they're made of.",
			"{user} is letting the competition get ahead. Challenge them to start their {goalType}.",
			"Game on? {user} hasn't logged any {goalType} yet. Call them out.",
		},
		IntentCheckIn: {
			"Halftime score: {user} sits at {completed}/{goal} {goalType}. Push them for the finish.",
			"{user} needs {remaining} more {goalType} to claim this period. Challenge accepted?",
			"{user} is {progressPercent}% of the way there. Winners close it out.",
			"Leaderboard check: {user} with {completed} {goalType}. Can they reach {goal}?",
			"{user} is in the race with {completed} {goalType}. Time to turn up the pressure.",
			"Progress check for {user}: {completed} down, {remaining} to go. Don't let them coast.",
		},
	},
	StyleAchievement: {
		IntentMissedGoal: {
			"{user} didn't reach their weekly {goalType} goal and is behind schedule. Help them get back on track?",
			"Progress update: {user} is off target with {goalType} this week. They need support to reach their milestone!",
			"{user} fell short of their weekly {goalType} achievement target. Time to help them refocus!",
			"Milestone alert: {user} is {remaining} {goalType} behind schedule. Encouragement needed!",
			"{user}'s weekly {goalType} goal is in jeopardy. Help them get back to their plan!",
			"Achievement tracker: {user} is falling short of their weekly {goalType} target. Support their comeback!",
			"Goal status: {user} missed their weekly {goalType} target. They need motivation to stay on track!",
			"Progress report: {user} is behind schedule with {goalType} and needs help reaching this week's milestone!",
			"Target missed: {user} didn't hit their weekly {goalType} goal. Help them realign with their objectives!",
			"{user} is off pace for their weekly {goalType} objective. Perfect time to offer milestone support!",
		},
		IntentWeeklySummary: {
			"Weekly progress: {user} completed {completed}/{goal} {goalType}. They're {progressPercent}% to their goal!",
			"Achievement report: {user} hit {completed} {goalType} this week (target: {goal}). Progress tracking shows they need support.",
			"Milestone update: {user} accomplished {completed} out of {goal} planned {goalType}. Steady progress toward their target.",
			"Progress tracking: {user} completed {completed} {goalType}, {remaining} away from their weekly goal!",
			"Goal status: {user} achieved {completed}/{goal} {goalType}. They could use encouragement to reach their target.",
			"Weekly metrics: {user} logged {completed} {goalType} toward their {goal} target. They need support to close the gap.",
			"Achievement summary: {user} finished {completed} {goalType} this week. Building toward their bigger goal of {goal}.",
			"Progress milestone: {user} completed {completed} {goalType}. Each one brings them closer to their {goal} target.",
		},
		IntentCongratulatory: {
			"Milestone unlocked: {user} completed {completed}/{goal} {goalType}. Target achieved!",
			"Achievement report: {user} reached 100% of their {goalType} goal. Recognize the accomplishment!",
			"Goal status: complete. {user} logged {completed} {goalType} against a target of {goal}.",
			"{user} hit their {goalType} objective on schedule. Consistent execution deserves praise.",
			"Progress tracking shows {user} met their {goalType} target. Help them set the next milestone!",
			"Target achieved: {user} finished {goal} {goalType}. Another milestone in the books.",
		},
		IntentMotivational: {
			"Progress tracking: {user} has 0 of {goal} {goalType} so far. Help them log the first milestone.",
			"{user}'s {goalType} plan for this period hasn't started yet. An early nudge keeps them on schedule.",
			"Milestone pending: {user} needs to begin their {goalType} to stay on target.",
			"Goal status: not started. {user} is aiming for {goal} {goalType}. Support their first step!",
			"{user} has a {goal} {goalType} target and a full period ahead. Help them build momentum.",
			"Schedule check: {user}'s {goalType} tracker is at zero. Encourage an early start.",
		},
		IntentCheckIn: {
			"Progress checkpoint: {user} is at {completed}/{goal} {goalType} ({progressPercent}%).",
			"Milestone tracking: {user} needs {remaining} more {goalType} to hit this period's target.",
			"{user} is {progressPercent}% toward their {goalType} goal. Encourage them to keep the pace.",
			"Status update: {user} logged {completed} {goalType} so far. The target is {goal}.",
			"Checkpoint reached: {user} has {completed} {goalType}. Help them stay on schedule.",
			"{user} is tracking toward {goal} {goalType} with {completed} complete. Support the final stretch.",
		},
	},
}

// Templates returns the templates registered for a style and intent.
func Templates(style Style, intent Intent) ([]string, error) {
	if !style.valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStyle, style)
	}
	if !intent.valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntent, intent)
	}
	return bank[style][intent], nil
}

// Validate checks that every style and intent pair has at least one template.
func Validate() error {
	for _, s := range Styles() {
		for _, i := range Intents() {
			if len(bank[s][i]) == 0 {
				return fmt.Errorf("message bank has no %s templates for style %s", i, s)
			}
		}
	}
	return nil
}
